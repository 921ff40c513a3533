package app

import (
	"sync"

	"github.com/ashureev/syncup/internal/chat"
)

const subscriberBuffer = 64

// Hub fans chat events out to subscribers. Slow subscribers miss events
// rather than block the chat lanes.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan chat.Event
	closed bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan chat.Event)}
}

// Subscribe returns a channel of events and a function that ends the
// subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan chat.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan chat.Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

// Publish delivers e to every subscriber with room in its buffer.
func (h *Hub) Publish(e chat.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close ends all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
