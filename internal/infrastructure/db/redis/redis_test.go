package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

func connectForTest(t *testing.T) *Provider {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client, err := Connect(context.Background(), Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewProvider(client, time.Minute, zerolog.Nop())
}

func TestKVStore_RoundTrip(t *testing.T) {
	p := connectForTest(t)
	ctx := context.Background()
	store := p.Store(uuid.NewString())

	require.NoError(t, store.Set(ctx, map[string]string{domain.KeyAccessToken: "tok", domain.KeyUser: `{"id":"7"}`}))

	got, err := store.Get(ctx, domain.KeyAccessToken, domain.KeyUser, "missing")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{domain.KeyAccessToken: "tok", domain.KeyUser: `{"id":"7"}`}, got)

	require.NoError(t, store.Delete(ctx, domain.KeyAccessToken, domain.KeyUser))
	got, err = store.Get(ctx, domain.KeyAccessToken, domain.KeyUser)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKVStore_ProfilesAreIsolated(t *testing.T) {
	p := connectForTest(t)
	ctx := context.Background()

	require.NoError(t, p.Store(uuid.NewString()).Set(ctx, map[string]string{"k": "v"}))
	got, err := p.Store(uuid.NewString()).Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBroadcaster_SkipsOwnChanges(t *testing.T) {
	p := connectForTest(t)
	ctx := context.Background()
	bus := p.Bus(uuid.NewString())

	a, err := bus.Subscribe(ctx, "tab-a")
	require.NoError(t, err)
	defer a.Close()
	b, err := bus.Subscribe(ctx, "tab-b")
	require.NoError(t, err)
	defer b.Close()

	change := domain.StorageChange{Key: domain.KeyAccessToken, NewValue: "tok", Source: "tab-a"}
	require.NoError(t, bus.Publish(ctx, change))

	select {
	case got := <-b.Changes():
		assert.Equal(t, change, got)
	case <-time.After(2 * time.Second):
		t.Fatal("tab-b did not receive the change")
	}

	select {
	case got := <-a.Changes():
		t.Fatalf("tab-a received its own change: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcaster_CloseEndsFeed(t *testing.T) {
	p := connectForTest(t)
	sub, err := p.Bus(uuid.NewString()).Subscribe(context.Background(), "tab-a")
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Changes():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("feed not closed")
	}
}
