// Package mongo holds the MongoDB repositories: the session audit trail and
// the identity stand-in's users.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultTimeout = 10 * time.Second
	defaultAppName = "ticket-portal"
)

// Config selects the deployment and database. URI is required.
type Config struct {
	URI      string
	Database string
	AppName  string
	Timeout  time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func clientOptions(cfg Config) *options.ClientOptions {
	name := cfg.AppName
	if name == "" {
		name = defaultAppName
	}
	return options.Client().
		ApplyURI(cfg.URI).
		SetAppName(name).
		SetServerSelectionTimeout(cfg.timeout())
}

// Connect opens a client and pings the primary before handing out the
// database. The client is disconnected again when the ping fails.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	if cfg.URI == "" {
		return nil, nil, errors.New("mongo: URI is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect to %q: %w", cfg.Database, err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, nil, fmt.Errorf("mongo ping %q: %w", cfg.Database, err)
	}

	return client, client.Database(cfg.Database), nil
}

// Disconnect closes client within timeout, logging instead of failing.
func Disconnect(client *mongo.Client, timeout time.Duration, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Warn().Err(err).Msg("disconnecting mongo")
		return
	}
	log.Debug().Msg("mongo disconnected")
}
