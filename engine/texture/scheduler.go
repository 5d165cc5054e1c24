package texture

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Scheduler runs texture load tasks off the render thread.
type Scheduler interface {
	// Schedule queues fn for execution.
	//
	// Parameters:
	//   - fn: the task to run
	Schedule(fn func())

	// Stop stops accepting work. Queued tasks may still run.
	Stop()
}

// poolScheduler runs tasks on a dynamic worker pool.
type poolScheduler struct {
	pool    worker.DynamicWorkerPool
	nextID  atomic.Int64
	stopped atomic.Bool
}

var _ Scheduler = &poolScheduler{}

// NewPoolScheduler creates a Scheduler backed by a worker pool of at most workers goroutines.
// Idle workers exit after one second.
//
// Parameters:
//   - workers: the maximum number of concurrent loads, at least 1
//
// Returns:
//   - Scheduler: the pool backed scheduler
func NewPoolScheduler(workers int) Scheduler {
	return &poolScheduler{
		pool: worker.NewDynamicWorkerPool(max(workers, 1), 256, 1*time.Second),
	}
}

func (s *poolScheduler) Schedule(fn func()) {
	if s.stopped.Load() {
		return
	}
	s.pool.SubmitTask(worker.Task{
		ID: int(s.nextID.Add(1)),
		Do: func() (any, error) {
			fn()
			return nil, nil
		},
	})
}

func (s *poolScheduler) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	s.pool.Stop()
}

// ManualScheduler queues tasks until RunPending is called. Hosts that load on their own thread and
// tests that need deterministic ordering use it in place of the worker pool.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []func()
	stopped bool
}

var _ Scheduler = &ManualScheduler{}

func (s *ManualScheduler) Schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.pending = append(s.pending, fn)
}

func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Pending returns the number of queued tasks.
//
// Returns:
//   - int: the queue length
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// RunPending runs every queued task in submission order, including tasks queued while running.
//
// Returns:
//   - int: the number of tasks run
func (s *ManualScheduler) RunPending() int {
	n := 0
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return n
		}
		fn := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		fn()
		n++
	}
}
