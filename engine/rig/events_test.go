package rig

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/stretchr/testify/assert"
)

func TestEventQueueDrainOrder(t *testing.T) {
	q := NewEventQueue()
	q.Push(spine.Event{Type: spine.EventStart})
	q.Push(spine.Event{Type: spine.EventCustom, Name: "footstep"})
	q.Push(spine.Event{Type: spine.EventComplete})
	assert.Equal(t, 3, q.Len())

	var types []spine.EventType
	n := q.Drain(func(e spine.Event) { types = append(types, e.Type) })
	assert.Equal(t, 3, n)
	assert.Equal(t, []spine.EventType{spine.EventStart, spine.EventCustom, spine.EventComplete}, types)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.Drain(func(spine.Event) { t.Fatal("empty queue delivered an event") }))
}

func TestEventQueueKeepsEventsPushedDuringDrain(t *testing.T) {
	q := NewEventQueue()
	q.Push(spine.Event{Type: spine.EventComplete})

	var first []spine.Event
	q.Drain(func(e spine.Event) {
		first = append(first, e)
		q.Push(spine.Event{Type: spine.EventStart})
	})
	assert.Len(t, first, 1)
	assert.Equal(t, 1, q.Len())

	var second []spine.Event
	q.Drain(func(e spine.Event) { second = append(second, e) })
	assert.Equal(t, []spine.Event{{Type: spine.EventStart}}, second)
}

func TestEventQueueReusesBuffer(t *testing.T) {
	q := NewEventQueue()
	for range 8 {
		q.Push(spine.Event{})
	}
	q.Drain(func(spine.Event) {})
	q.Push(spine.Event{})
	q.Drain(func(spine.Event) {})
	q.Push(spine.Event{})
	assert.GreaterOrEqual(t, cap(q.events), 8)
}
