package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
)

const subscriptionBuffer = 64

// Hub fans storage changes out to every subscriber except the publisher.
// Publish never blocks: a subscriber whose buffer is full misses the change.
type Hub struct {
	log zerolog.Logger

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

// NewHub returns a Hub with no subscribers.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{log: log, subs: make(map[*subscription]struct{})}
}

// Publish delivers change to every other context.
func (h *Hub) Publish(_ context.Context, change domain.StorageChange) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		if sub.contextID == change.Source {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			h.log.Warn().Str("tab", sub.contextID).Str("key", change.Key).Msg("subscriber behind, storage change dropped")
		}
	}
	return nil
}

// Subscribe registers contextID.
func (h *Hub) Subscribe(_ context.Context, contextID string) (ports.Subscription, error) {
	sub := &subscription{
		hub:       h,
		contextID: contextID,
		ch:        make(chan domain.StorageChange, subscriptionBuffer),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub, nil
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

type subscription struct {
	hub       *Hub
	contextID string
	ch        chan domain.StorageChange
	once      sync.Once
}

func (s *subscription) Changes() <-chan domain.StorageChange {
	return s.ch
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
	return nil
}
