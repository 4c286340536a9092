package ports

import (
	"context"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

// KeyValueStore is the persistent storage of one browser profile.
type KeyValueStore interface {
	// Get returns the values present for keys; absent keys are omitted.
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	// Set writes every entry atomically.
	Set(ctx context.Context, values map[string]string) error
	// Delete removes every key atomically.
	Delete(ctx context.Context, keys ...string) error
}

// Subscription is a live feed of storage changes made by other tabs.
type Subscription interface {
	Changes() <-chan domain.StorageChange
	Close() error
}

// Broadcaster is the storage-change channel of one browser profile.
// A subscriber never receives changes whose Source equals its own contextID.
type Broadcaster interface {
	Publish(ctx context.Context, change domain.StorageChange) error
	Subscribe(ctx context.Context, contextID string) (Subscription, error)
}

// StorageProvider hands out the storage and broadcast channel of a profile.
type StorageProvider interface {
	Store(profileID string) KeyValueStore
	Bus(profileID string) Broadcaster
}
