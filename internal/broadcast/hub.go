package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

const DefaultCapacity = 64

var ErrClosed = errors.New("broadcast: hub closed")

// LagError reports that a subscriber fell behind and Missed messages were
// overwritten before it read them. The subscriber continues with the oldest
// retained message.
type LagError struct {
	Missed uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("broadcast: subscriber lagged, %d messages dropped", e.Missed)
}

// Hub retains the last Capacity messages in a ring. Publish never waits on
// subscribers; a slow subscriber loses its oldest unread messages.
type Hub struct {
	mu     sync.Mutex
	buf    []Message
	next   uint64 // sequence number of the next published message
	notify chan struct{}
	closed bool

	subscribers atomic.Int64
	published   atomic.Uint64
	lagged      atomic.Uint64
}

func NewHub(capacity int) *Hub {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Hub{
		buf:    make([]Message, capacity),
		notify: make(chan struct{}),
	}
}

func (h *Hub) Publish(m Message) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.buf[h.next%uint64(len(h.buf))] = m
	h.next++
	close(h.notify)
	h.notify = make(chan struct{})
	h.mu.Unlock()
	h.published.Add(1)
}

// Close wakes every subscriber. Messages still retained remain readable;
// after those Recv returns ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.notify)
}

// Subscribe starts a reader at the next message to be published.
func (h *Hub) Subscribe() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers.Add(1)
	return &Subscriber{hub: h, next: h.next}
}

type HubStats struct {
	Subscribers int64
	Published   uint64
	Lagged      uint64 // total messages skipped across all subscribers
}

func (h *Hub) Stats() HubStats {
	return HubStats{
		Subscribers: h.subscribers.Load(),
		Published:   h.published.Load(),
		Lagged:      h.lagged.Load(),
	}
}

// Subscriber is one reader's cursor. It is not safe for concurrent use.
type Subscriber struct {
	hub  *Hub
	next uint64
	once sync.Once
}

// Recv blocks until the next message is available. It returns a *LagError
// if messages were overwritten since the last call, ErrClosed once the hub
// is closed and drained, or the context error.
func (s *Subscriber) Recv(ctx context.Context) (Message, error) {
	h := s.hub
	for {
		h.mu.Lock()
		capacity := uint64(len(h.buf))
		var oldest uint64
		if h.next > capacity {
			oldest = h.next - capacity
		}
		if s.next < oldest {
			missed := oldest - s.next
			s.next = oldest
			h.mu.Unlock()
			h.lagged.Add(missed)
			return Message{}, &LagError{Missed: missed}
		}
		if s.next < h.next {
			m := h.buf[s.next%capacity]
			s.next++
			h.mu.Unlock()
			return m, nil
		}
		if h.closed {
			h.mu.Unlock()
			return Message{}, ErrClosed
		}
		wait := h.notify
		h.mu.Unlock()

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-wait:
		}
	}
}

// Close detaches the subscriber from the hub's accounting.
func (s *Subscriber) Close() {
	s.once.Do(func() { s.hub.subscribers.Add(-1) })
}
