package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 10*time.Second, cfg.Resolve.Timeout)
	assert.Equal(t, uint(3), cfg.Resolve.MaxAttempts)
	assert.Equal(t, 720*time.Hour, cfg.Redis.ProfileTTL)
	assert.Empty(t, cfg.Mongo.URI)
	assert.Equal(t, 24*time.Hour, cfg.Identity.TokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.TabIdleTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENV":                  "production",
		"STORAGE_DRIVER":       "redis",
		"RESOLVE_TIMEOUT":      "3s",
		"RESOLVE_MAX_ATTEMPTS": "5",
		"COOKIE_SECURE":        "true",
		"MONGO_URI":            "mongodb://mongo:27017",
		"TAB_IDLE_TIMEOUT":     "5m",
	}))
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, StorageRedis, cfg.StorageDriver)
	assert.Equal(t, 3*time.Second, cfg.Resolve.Timeout)
	assert.Equal(t, uint(5), cfg.Resolve.MaxAttempts)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
	assert.Equal(t, 5*time.Minute, cfg.TabIdleTimeout)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{"STORAGE_DRIVER": "etcd"}))
	assert.ErrorContains(t, err, "STORAGE_DRIVER")
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{"RESOLVE_TIMEOUT": "soon"}))
	assert.Error(t, err)
}
