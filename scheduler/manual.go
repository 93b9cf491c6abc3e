package scheduler

import (
	"sync"

	"github.com/eapache/queue"
)

var _ Scheduler = (*Manual)(nil)

// Manual is a Scheduler whose turns are driven explicitly by the owner. It is
// meant for tests that need to observe the state between an operation
// returning and its completion being delivered.
type Manual struct {
	mu     sync.Mutex
	tasks  *queue.Queue
	closed bool
}

// NewManual returns an empty Manual scheduler.
func NewManual() *Manual {
	return &Manual{tasks: queue.New()}
}

// Post enqueues task until the next Step or Drain.
func (m *Manual) Post(task Task) error {
	if task == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.tasks.Add(task)
	return nil
}

// Pending returns the number of queued tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks.Length()
}

// Step runs the oldest queued task, reporting whether one was run.
func (m *Manual) Step() bool {
	m.mu.Lock()
	if m.tasks.Length() == 0 {
		m.mu.Unlock()
		return false
	}
	task := m.tasks.Remove().(Task)
	m.mu.Unlock()
	task()
	return true
}

// Drain runs queued tasks until none remain, including tasks posted by the
// tasks it runs. It returns the number of turns taken.
func (m *Manual) Drain() int {
	n := 0
	for m.Step() {
		n++
	}
	return n
}

// Close rejects further posts. Queued tasks stay queued until drained.
func (m *Manual) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
