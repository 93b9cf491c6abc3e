package scheduler

import (
	"context"
	"sync"
)

// Future is the eventual outcome of an operation. It is resolved by its
// producer exactly once; the value becomes observable only on a scheduler
// turn after Resolve was called.
//
// Future is safe for concurrent use.
type Future[T any] struct {
	sched Scheduler
	done  chan struct{}

	mu        sync.Mutex
	resolving bool
	completed bool
	val       T
	err       error
	callbacks []func(T, error)
}

// NewFuture returns an unresolved Future whose completion is delivered on s.
func NewFuture[T any](s Scheduler) *Future[T] {
	return &Future[T]{sched: s, done: make(chan struct{})}
}

// Resolve schedules completion with (v, err). Only the first call has any
// effect. If the scheduler refuses the task the Future still completes on a
// fresh goroutine, with err when it is set and the scheduler's error
// otherwise.
func (f *Future[T]) Resolve(v T, err error) {
	f.mu.Lock()
	if f.resolving {
		f.mu.Unlock()
		return
	}
	f.resolving = true
	f.mu.Unlock()

	if perr := f.sched.Post(func() { f.complete(v, err) }); perr != nil {
		var zero T
		if err == nil {
			err = perr
		}
		go f.complete(zero, err)
	}
}

// Done is closed once the Future has completed.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the Future completes or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking. ok is false until Done is
// closed.
func (f *Future[T]) Result() (v T, err error, ok bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Then attaches a callback. Callbacks run on a scheduler turn, in attachment
// order, and never inside the call to Then itself, even when the Future has
// already completed.
func (f *Future[T]) Then(cb func(T, error)) {
	if cb == nil {
		return
	}
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	v, err := f.val, f.err
	f.mu.Unlock()

	if perr := f.sched.Post(func() { cb(v, err) }); perr != nil {
		go cb(v, err)
	}
}

func (f *Future[T]) complete(v T, err error) {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return
	}
	f.val, f.err = v, err
	f.completed = true
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(v, err)
	}
}
