// Command identity-stub serves the login, register and identity endpoints
// the portal talks to, with the three seeded accounts. It is meant for local
// development and tests.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/identity"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/config"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/db/mongo"
	"github.com/shuttlepass/ticket-portal/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("loading configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "identity-stub",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("identity stub stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	var repo identity.UserRepository = identity.NewMemoryRepository()
	if cfg.Mongo.URI != "" {
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "identity-stub"})
		if err != nil {
			return err
		}
		defer mongo.Disconnect(client, 5*time.Second, log)

		users := mongo.NewUserRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			return err
		}
		repo = users
	}

	svc := identity.NewService(repo, cfg.Identity.JWTSecret, cfg.Identity.TokenTTL, logger.Component("identity"))
	if cfg.Identity.Seed {
		if err := svc.Seed(ctx, identity.DefaultSeeds()); err != nil {
			return err
		}
	}

	e := identity.NewRouter(svc, logger.Component("http"))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Identity.Port).Msg("identity stub listening")
		if err := e.Start(":" + cfg.Identity.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
