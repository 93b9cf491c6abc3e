package scheduler

import (
	"sync"

	"github.com/eapache/queue"
)

var _ Scheduler = (*Loop)(nil)

// Loop is a Scheduler backed by one goroutine. Tasks run strictly one after
// another in the order they were posted. The inbox is unbounded so Post never
// blocks the caller.
type Loop struct {
	mu     sync.Mutex
	inbox  *queue.Queue
	wake   chan struct{}
	quitCh chan struct{}
	doneCh chan struct{}
	closed bool
}

// NewLoop starts a Loop. Call Close to stop it.
func NewLoop() *Loop {
	l := &Loop{
		inbox:  queue.New(),
		wake:   make(chan struct{}, 1),
		quitCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post enqueues task for a later turn.
func (l *Loop) Post(task Task) error {
	if task == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.inbox.Add(task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of tasks waiting for a turn.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inbox.Length()
}

// Stop stops accepting tasks without waiting. Tasks already queued still run.
// Unlike Close it may be called from inside a task.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.quitCh)
	}
}

// Close stops the loop and waits for the queued tasks to finish. It must not
// be called from a task, since it would wait on itself; use Stop there. It is
// safe to call more than once.
func (l *Loop) Close() error {
	l.Stop()
	<-l.doneCh
	return nil
}

func (l *Loop) run() {
	defer close(l.doneCh)
	for {
		for {
			task, ok := l.next()
			if !ok {
				break
			}
			task()
		}

		select {
		case <-l.wake:
		case <-l.quitCh:
			// drain whatever was posted before Close
			for {
				task, ok := l.next()
				if !ok {
					return
				}
				task()
			}
		}
	}
}

func (l *Loop) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inbox.Length() == 0 {
		return nil, false
	}
	return l.inbox.Remove().(Task), true
}
