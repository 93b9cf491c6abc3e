// Package scheduler provides the deferred-completion discipline used by the
// pseudo session: operations compute their results synchronously, then post
// the delivery to a Scheduler so that completion is always observed on a
// later turn, never inside the call that initiated it.
//
// Two schedulers are provided:
//
//	Loop   : a single goroutine draining an unbounded FIFO; the production default
//	Manual : tasks wait until Step or Drain is called; deterministic turns for tests
//
// Results are delivered through Future, the single asynchronous primitive.
// Callback-style callers attach a continuation with Future.Then.
package scheduler

import "errors"

// ErrClosed is returned by Post after a scheduler has been closed.
var ErrClosed = errors.New("scheduler: closed")

// Task is a unit of work run on a scheduler turn.
type Task func()

// Scheduler runs posted tasks on a later turn, in FIFO order, one at a time.
// Post never runs the task synchronously.
type Scheduler interface {
	Post(task Task) error
}
