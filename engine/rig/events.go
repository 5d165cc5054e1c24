package rig

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
)

// EventQueue buffers animation events between the controller listener and the rig's event callback.
// Events pushed while a drain is running are kept for the next drain.
type EventQueue struct {
	mu     *sync.Mutex
	events []spine.Event
	spare  []spine.Event
}

// NewEventQueue creates an empty event queue.
//
// Returns:
//   - *EventQueue: the new queue
func NewEventQueue() *EventQueue {
	return &EventQueue{mu: &sync.Mutex{}}
}

// Push appends an event.
//
// Parameters:
//   - e: the event
func (q *EventQueue) Push(e spine.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
}

// Len returns the number of queued events.
//
// Returns:
//   - int: the queue length
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Drain swaps out the queued events and calls fn for each in push order.
// The lock is not held while fn runs, so fn may push.
//
// Parameters:
//   - fn: the function receiving each event
//
// Returns:
//   - int: the number of events delivered
func (q *EventQueue) Drain(fn func(spine.Event)) int {
	q.mu.Lock()
	batch := q.events
	q.events = q.spare[:0]
	q.spare = nil
	q.mu.Unlock()

	for _, e := range batch {
		fn(e)
	}

	clear(batch)
	q.mu.Lock()
	if q.spare == nil {
		q.spare = batch[:0]
	}
	q.mu.Unlock()
	return len(batch)
}
