// Package memory provides in-process implementations of the profile storage
// and its storage-change channel. Every tab served by one portal instance
// shares them; use the Redis implementations to span instances.
package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/ports"
)

// Store is a mutex-guarded key-value map.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

// Get returns the values present for keys.
func (s *Store) Get(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Set writes all values under one lock.
func (s *Store) Set(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.data[k] = v
	}
	return nil
}

// Delete removes all keys under one lock.
func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Provider hands out one Store and one Hub per profile.
type Provider struct {
	log zerolog.Logger

	mu     sync.Mutex
	stores map[string]*Store
	hubs   map[string]*Hub
}

// NewProvider returns an empty Provider.
func NewProvider(log zerolog.Logger) *Provider {
	return &Provider{
		log:    log,
		stores: make(map[string]*Store),
		hubs:   make(map[string]*Hub),
	}
}

// Store returns profileID's storage.
func (p *Provider) Store(profileID string) ports.KeyValueStore {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stores[profileID]
	if !ok {
		s = NewStore()
		p.stores[profileID] = s
	}
	return s
}

// Bus returns profileID's storage-change channel.
func (p *Provider) Bus(profileID string) ports.Broadcaster {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.hubs[profileID]
	if !ok {
		h = NewHub(p.log.With().Str("profile", profileID).Logger())
		p.hubs[profileID] = h
	}
	return h
}
