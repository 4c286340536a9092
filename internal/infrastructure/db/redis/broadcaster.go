package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
)

const subscriberBuffer = 64

type changeMessage struct {
	Key      string `json:"key"`
	NewValue string `json:"new_value"`
	Source   string `json:"source"`
}

// Broadcaster carries one profile's storage changes over Redis Pub/Sub.
// Channel format: portal:<profile_id>:storage
type Broadcaster struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

// NewBroadcaster returns the change channel of profileID.
func NewBroadcaster(client *redis.Client, profileID string, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		client:  client,
		channel: fmt.Sprintf("%s:%s:storage", keyPrefix, profileID),
		log:     log.With().Str("profile", profileID).Logger(),
	}
}

// Publish sends change to every subscriber of the profile.
func (b *Broadcaster) Publish(ctx context.Context, change domain.StorageChange) error {
	payload, err := json.Marshal(changeMessage{Key: change.Key, NewValue: change.NewValue, Source: change.Source})
	if err != nil {
		return fmt.Errorf("encode storage change: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish storage change: %w", err)
	}
	return nil
}

// Subscribe returns a feed of the profile's changes made by contexts other
// than contextID. The subscription is confirmed before Subscribe returns.
func (b *Broadcaster) Subscribe(ctx context.Context, contextID string) (ports.Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	sub := &subscription{
		ps:   ps,
		out:  make(chan domain.StorageChange, subscriberBuffer),
		done: make(chan struct{}),
	}
	go sub.pump(contextID, b.log)
	return sub, nil
}

type subscription struct {
	ps   *redis.PubSub
	out  chan domain.StorageChange
	done chan struct{}
	once sync.Once
	err  error
}

func (s *subscription) pump(contextID string, log zerolog.Logger) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-s.ps.Channel():
			if !ok {
				return
			}
			var m changeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				log.Warn().Err(err).Msg("ignoring undecodable storage change")
				continue
			}
			if m.Source == contextID {
				continue
			}
			select {
			case s.out <- domain.StorageChange{Key: m.Key, NewValue: m.NewValue, Source: m.Source}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *subscription) Changes() <-chan domain.StorageChange { return s.out }

func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.ps.Close()
	})
	return s.err
}
