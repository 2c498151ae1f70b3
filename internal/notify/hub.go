// Package notify is the in-process publish/subscribe channel for document
// change events. Transports that carry events between processes bridge into a
// Hub; observers react to an event by re-reading the whole document.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event announces that the persisted document under Key changed.
type Event struct {
	Key      string    `json:"key"`
	Revision int64     `json:"revision"`
	Origin   string    `json:"origin"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// Listener receives change events. Listeners run synchronously on the
// publishing goroutine and must not block.
type Listener func(Event)

// Hub fans events out to subscribed listeners.
type Hub struct {
	mu        sync.RWMutex
	origin    string
	next      uint64
	listeners map[uint64]Listener
}

// NewHub returns a hub with a fresh process-unique origin.
func NewHub() *Hub {
	return &Hub{origin: uuid.NewString(), listeners: make(map[uint64]Listener)}
}

// Origin identifies events published by this process.
func (h *Hub) Origin() string { return h.origin }

// Subscribe registers l and returns a function that removes it. The returned
// function is safe to call more than once.
func (h *Hub) Subscribe(l Listener) (cancel func()) {
	if l == nil {
		return func() {}
	}
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = l
	h.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers ev to every current listener. Events without an origin are
// stamped with the hub's own.
func (h *Hub) Publish(ev Event) {
	if ev.Origin == "" {
		ev.Origin = h.origin
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.RLock()
	snapshot := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		snapshot = append(snapshot, l)
	}
	h.mu.RUnlock()
	for _, l := range snapshot {
		l(ev)
	}
}

// PublishContext publishes ev, or holds it in the Pending attached to ctx
// until that Pending is flushed.
func (h *Hub) PublishContext(ctx context.Context, ev Event) {
	if p, ok := ctx.Value(pendingKey{}).(*Pending); ok && p != nil {
		p.hold(h, ev)
		return
	}
	h.Publish(ev)
}

// Pending holds events raised while the caller keeps a lock that listeners may
// need. Flush delivers them in order once the lock is released.
type Pending struct {
	mu     sync.Mutex
	queued []pendingEvent
}

type pendingEvent struct {
	hub *Hub
	ev  Event
}

type pendingKey struct{}

// WithPending returns a context under which PublishContext queues into p.
func WithPending(ctx context.Context, p *Pending) context.Context {
	return context.WithValue(ctx, pendingKey{}, p)
}

func (p *Pending) hold(h *Hub, ev Event) {
	p.mu.Lock()
	p.queued = append(p.queued, pendingEvent{hub: h, ev: ev})
	p.mu.Unlock()
}

// Flush publishes and forgets the queued events.
func (p *Pending) Flush() {
	p.mu.Lock()
	queued := p.queued
	p.queued = nil
	p.mu.Unlock()
	for _, q := range queued {
		q.hub.Publish(q.ev)
	}
}

// Local reports whether ev was published by this hub's process.
func (h *Hub) Local(ev Event) bool { return ev.Origin == h.origin }

// Len returns the number of subscribed listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
