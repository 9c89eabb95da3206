package service

import "github.com/oldiebutgoldie/marketplace/internal/core/domain"

// EventQueue buffers post-commit events for the publisher workers.
// Enqueue never blocks a request: when the buffer is full the event is
// dropped and the caller logs it.
type EventQueue struct {
	ch chan domain.Event
}

func NewEventQueue(size int) *EventQueue {
	return &EventQueue{ch: make(chan domain.Event, size)}
}

func (q *EventQueue) Enqueue(evt domain.Event) bool {
	select {
	case q.ch <- evt:
		return true
	default:
		return false
	}
}

func (q *EventQueue) Events() <-chan domain.Event {
	return q.ch
}

func (q *EventQueue) Close() {
	close(q.ch)
}
