package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const subscriberBuffer = 16

// Hub decorates a Logger and broadcasts every stored event to live
// subscribers. A subscriber whose buffer is full misses events instead of
// stalling the learner's request.
type Hub struct {
	next Logger

	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

// NewHub wraps next. A nil next behaves like NopLogger.
func NewHub(next Logger) *Hub {
	if next == nil {
		next = NopLogger{}
	}
	return &Hub{
		next: next,
		subs: make(map[chan Event]struct{}),
	}
}

func (h *Hub) LogEvent(ctx context.Context, event Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if err := h.next.LogEvent(ctx, event); err != nil {
		return err
	}
	h.publish(event)
	return nil
}

func (h *Hub) Since(ctx context.Context, t time.Time) ([]Event, error) {
	return h.next.Since(ctx, t)
}

// Subscribe registers a listener. The returned cancel func must be called
// to release it; the channel is closed afterwards.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of active listeners.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *Hub) publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			slog.Warn("dropping activity event for slow subscriber", "type", event.Type, "learner_id", event.LearnerID)
		}
	}
}
