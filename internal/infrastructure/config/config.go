// Package config loads portal and identity-stub settings from the
// environment.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	BackendURL    string `env:"BACKEND_URL,    default=http://localhost:8081"`
	CookieSecure  bool   `env:"COOKIE_SECURE,  default=false"`
	StorageDriver string `env:"STORAGE_DRIVER, default=memory"`
	AuditWorkers  int    `env:"AUDIT_WORKERS,  default=4"`

	TabIdleTimeout time.Duration `env:"TAB_IDLE_TIMEOUT, default=30m"`

	Resolve  ResolveConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Identity IdentityConfig
}

type ResolveConfig struct {
	Timeout     time.Duration `env:"RESOLVE_TIMEOUT,      default=10s"`
	MaxAttempts uint          `env:"RESOLVE_MAX_ATTEMPTS, default=3"`
}

type RedisConfig struct {
	Addr       string        `env:"REDIS_ADDR,        default=localhost:6379"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB,          default=0"`
	ProfileTTL time.Duration `env:"REDIS_PROFILE_TTL, default=720h"`
}

// MongoConfig is optional: with an empty URI the audit trail is log-only and
// the identity stub keeps users in memory.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=ticket_portal"`
}

type IdentityConfig struct {
	Port      string        `env:"IDENTITY_PORT, default=8081"`
	JWTSecret string        `env:"JWT_SECRET,    default=dev-secret-change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,     default=24h"`
	Seed      bool          `env:"IDENTITY_SEED, default=true"`
}

// IsDevelopment reports whether ENV selects development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	switch cfg.StorageDriver {
	case StorageMemory, StorageRedis:
	default:
		return nil, fmt.Errorf("config: unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return &cfg, nil
}
