package lspsession

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// ErrHubClosed is returned by Subscription.Recv once the session has
// ended and no further notifications will ever arrive.
var ErrHubClosed = errors.New("lspsession: notifications hub closed")

// Notification is one server-originated JSON-RPC notification.
type Notification struct {
	Method string
	Raw    json.RawMessage
}

// notificationHub is the bounded broadcast channel from spec.md §4.4:
// capacity 32, each subscriber sees every notification from its
// subscription onward, and a subscriber that falls more than capacity
// messages behind receives a Lagged(n) indication before continuing
// from the oldest message still buffered. No library in the retrieval pack exposes a
// narrower primitive than a full pub/sub broker, so this ring buffer
// is hand-written (see DESIGN.md).
type notificationHub struct {
	mu       sync.Mutex
	buf      []Notification
	capacity int
	nextSeq  uint64
	closed   bool
	wake     chan struct{}
}

func newNotificationHub(capacity int) *notificationHub {
	return &notificationHub{
		buf:      make([]Notification, capacity),
		capacity: capacity,
		wake:     make(chan struct{}),
	}
}

func (h *notificationHub) publish(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.buf[int(h.nextSeq%uint64(h.capacity))] = n
	h.nextSeq++
	h.signalLocked()
}

func (h *notificationHub) closeHub() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.signalLocked()
}

func (h *notificationHub) signalLocked() {
	close(h.wake)
	h.wake = make(chan struct{})
}

// subscription is a single subscriber's read cursor into the hub.
type subscription struct {
	hub    *notificationHub
	cursor uint64
}

func (h *notificationHub) subscribe() *subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &subscription{hub: h, cursor: h.nextSeq}
}

// Recv blocks until the next notification is available, a lag is
// detected, the hub closes, or ctx is done. lag > 0 means the caller
// missed lag notifications and the cursor has jumped to the oldest
// one still buffered; the zero Notification is returned in that case.
func (s *subscription) Recv(ctx context.Context) (n Notification, lag int, err error) {
	h := s.hub
	for {
		h.mu.Lock()

		oldest := uint64(0)
		if h.nextSeq > uint64(h.capacity) {
			oldest = h.nextSeq - uint64(h.capacity)
		}

		switch {
		case s.cursor < oldest:
			missed := oldest - s.cursor
			s.cursor = oldest
			h.mu.Unlock()
			return Notification{}, int(missed), nil

		case s.cursor < h.nextSeq:
			got := h.buf[int(s.cursor%uint64(h.capacity))]
			s.cursor++
			h.mu.Unlock()
			return got, 0, nil

		case h.closed:
			h.mu.Unlock()
			return Notification{}, 0, ErrHubClosed

		default:
			wake := h.wake
			h.mu.Unlock()
			select {
			case <-wake:
			case <-ctx.Done():
				return Notification{}, 0, ctx.Err()
			}
		}
	}
}
