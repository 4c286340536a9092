package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/memory"
)

func TestTabRegistry_OpenReturnsSameSession(t *testing.T) {
	api := accounts{}.identity()
	provider := memory.NewProvider(zerolog.Nop())
	reg := NewTabRegistry(provider, api, newResolver(api), NopRecorder{}, zerolog.Nop())
	defer reg.Shutdown()

	a1, err := reg.Open("p1", "tab-a")
	require.NoError(t, err)
	a2, err := reg.Open("p1", "tab-a")
	require.NoError(t, err)
	assert.Same(t, a1, a2)

	b, err := reg.Open("p1", "tab-b")
	require.NoError(t, err)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 2, provider.Bus("p1").(*memory.Hub).Subscribers())
}

func TestTabRegistry_CloseUnsubscribes(t *testing.T) {
	api := accounts{}.identity()
	provider := memory.NewProvider(zerolog.Nop())
	reg := NewTabRegistry(provider, api, newResolver(api), NopRecorder{}, zerolog.Nop())
	defer reg.Shutdown()

	_, err := reg.Open("p1", "tab-a")
	require.NoError(t, err)

	require.NoError(t, reg.Close("p1", "tab-a"))
	require.NoError(t, reg.Close("p1", "tab-a"))
	assert.Zero(t, reg.Len())
	assert.Zero(t, provider.Bus("p1").(*memory.Hub).Subscribers())
}

func TestTabRegistry_RefusesAfterShutdown(t *testing.T) {
	api := accounts{}.identity()
	reg := NewTabRegistry(memory.NewProvider(zerolog.Nop()), api, newResolver(api), NopRecorder{}, zerolog.Nop())

	_, err := reg.Open("p1", "tab-a")
	require.NoError(t, err)

	reg.Shutdown()
	assert.Zero(t, reg.Len())

	_, err = reg.Open("p1", "tab-b")
	assert.Error(t, err)
}

func TestTabRegistry_SweepReclaimsIdleTabs(t *testing.T) {
	api := accounts{}.identity()
	provider := memory.NewProvider(zerolog.Nop())
	reg := NewTabRegistry(provider, api, newResolver(api), NopRecorder{}, zerolog.Nop(), WithIdleTimeout(time.Minute))
	defer reg.Shutdown()

	for i := 0; i < 500; i++ {
		_, err := reg.Open(fmt.Sprintf("one-shot-%d", i), "main")
		require.NoError(t, err)
	}
	require.Equal(t, 500, reg.Len())

	assert.Zero(t, reg.Sweep(time.Now()), "fresh tabs must survive")
	assert.Equal(t, 500, reg.Sweep(time.Now().Add(2*time.Minute)))
	assert.Zero(t, reg.Len())
	assert.Zero(t, provider.Bus("one-shot-0").(*memory.Hub).Subscribers())
}

func TestTabRegistry_SweepKeepsWatchedAndRecentTabs(t *testing.T) {
	api := accounts{}.identity()
	provider := memory.NewProvider(zerolog.Nop())
	reg := NewTabRegistry(provider, api, newResolver(api), NopRecorder{}, zerolog.Nop(), WithIdleTimeout(time.Minute))
	defer reg.Shutdown()

	watched, err := reg.Open("p1", "watched")
	require.NoError(t, err)
	_, stop := watched.Watch()
	defer stop()

	_, err = reg.Open("p1", "idle")
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 1, reg.Len())

	again, err := reg.Open("p1", "watched")
	require.NoError(t, err)
	assert.Same(t, watched, again)
}

func TestTabRegistry_ReopenAfterSweepRestoresStoredSession(t *testing.T) {
	ctx := context.Background()
	api := accounts{"tok123": ana}.identity()
	provider := memory.NewProvider(zerolog.Nop())
	reg := NewTabRegistry(provider, api, newResolver(api), NopRecorder{}, zerolog.Nop(), WithIdleTimeout(time.Minute))
	defer reg.Shutdown()

	sess, err := reg.Open("p1", "main")
	require.NoError(t, err)
	_, err = sess.Login(ctx, ana.Email, "123456san")
	require.NoError(t, err)

	require.Equal(t, 1, reg.Sweep(time.Now().Add(2*time.Minute)))

	reopened, err := reg.Open("p1", "main")
	require.NoError(t, err)
	assert.NotSame(t, sess, reopened)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_, ok := reopened.Wait(waitCtx).(domain.Authenticated)
	assert.True(t, ok, "expected the stored session to be resolved, got %T", reopened.State())
}
