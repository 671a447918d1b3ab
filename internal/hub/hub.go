// Package hub fans the telemetry view out to independent consumers. Each
// consumer selects the slice it cares about and is woken only when that
// slice changes.
package hub

import (
	"sync"

	"deposition_dashboard/internal/connection"
	"deposition_dashboard/internal/models"
)

// View is what consumers observe. It is comparable, so a selector may
// return the whole View.
type View struct {
	State     *models.SystemState `json:"state"`
	Status    connection.Status   `json:"status"`
	Connected bool                `json:"connected"`
	Error     string              `json:"error,omitempty"`
}

type subscriber interface {
	offer(v View)
}

// Hub owns the current View. Publish is meant for a single writer.
type Hub struct {
	mu     sync.Mutex
	view   View
	subs   map[uint64]subscriber
	nextID uint64
}

// New returns a hub holding initial.
func New(initial View) *Hub {
	return &Hub{view: initial, subs: make(map[uint64]subscriber)}
}

// Current returns the latest published View.
func (h *Hub) Current() View {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.view
}

// Publish replaces the View and notifies subscribers whose selection changed.
func (h *Hub) Publish(v View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.view = v
	for _, s := range h.subs {
		s.offer(v)
	}
}

// Update applies fn to the current View and publishes the result.
func (h *Hub) Update(fn func(View) View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.view = fn(h.view)
	for _, s := range h.subs {
		s.offer(h.view)
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Subscription delivers changes of one selected value. Only the latest
// undelivered value is kept; a slow consumer skips intermediate values.
type Subscription[T comparable] struct {
	hub    *Hub
	id     uint64
	sel    func(View) T
	last   T
	ch     chan T
	closed bool
}

// Subscribe registers sel and returns its value for the current View
// together with the subscription delivering later changes.
func Subscribe[T comparable](h *Hub, sel func(View) T) (T, *Subscription[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := &Subscription[T]{
		hub:  h,
		id:   h.nextID,
		sel:  sel,
		last: sel(h.view),
		ch:   make(chan T, 1),
	}
	h.subs[s.id] = s
	return s.last, s
}

// C delivers changed values. It is closed by Unsubscribe.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Unsubscribe stops delivery. After it returns no value is delivered, even
// one that was pending. Safe to call more than once and concurrently with Publish.
func (s *Subscription[T]) Unsubscribe() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	delete(s.hub.subs, s.id)
	s.drop()
}

// offer and drop run with hub.mu held.
func (s *Subscription[T]) offer(v View) {
	if s.closed {
		return
	}
	next := s.sel(v)
	if next == s.last {
		return
	}
	s.last = next
	for {
		select {
		case s.ch <- next:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *Subscription[T]) drop() {
	if s.closed {
		return
	}
	s.closed = true
	select {
	case <-s.ch:
	default:
	}
	close(s.ch)
}
