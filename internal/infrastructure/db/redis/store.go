package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/ports"
)

const keyPrefix = "portal"

// KVStore is one profile's storage in Redis.
// Key format: portal:<profile_id>:<key>
type KVStore struct {
	client  *redis.Client
	profile string
	ttl     time.Duration
}

// NewKVStore returns the storage of profileID. Every write refreshes the
// entries' expiry to ttl; zero keeps them forever.
func NewKVStore(client *redis.Client, profileID string, ttl time.Duration) *KVStore {
	return &KVStore{client: client, profile: profileID, ttl: ttl}
}

// Get returns the values present for keys.
func (s *KVStore) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := s.client.MGet(ctx, s.keys(keys)...).Result()
	if err != nil {
		return nil, fmt.Errorf("profile storage get: %w", err)
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

// Set writes every entry in one MULTI/EXEC transaction.
func (s *KVStore) Set(ctx context.Context, values map[string]string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.key(k), v, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("profile storage set: %w", err)
	}
	return nil
}

// Delete removes every key with a single DEL.
func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, s.keys(keys)...).Err(); err != nil {
		return fmt.Errorf("profile storage delete: %w", err)
	}
	return nil
}

func (s *KVStore) key(k string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, s.profile, k)
}

func (s *KVStore) keys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.key(k)
	}
	return out
}

// Provider hands out Redis-backed storage and change channels, so that
// every portal instance sharing the Redis server sees the same profiles.
type Provider struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewProvider returns a Provider over client.
func NewProvider(client *redis.Client, ttl time.Duration, log zerolog.Logger) *Provider {
	return &Provider{client: client, ttl: ttl, log: log}
}

// Store returns profileID's storage.
func (p *Provider) Store(profileID string) ports.KeyValueStore {
	return NewKVStore(p.client, profileID, p.ttl)
}

// Bus returns profileID's storage-change channel.
func (p *Provider) Bus(profileID string) ports.Broadcaster {
	return NewBroadcaster(p.client, profileID, p.log)
}
