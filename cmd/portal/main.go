// @title        Ticket Portal API
// @version      1.0
// @description  Session front-end of the ticket portal: login, logout, per-tab session state, cross-tab sync and the guarded page views.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/api"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
	"github.com/shuttlepass/ticket-portal/internal/core/service"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/backend"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/config"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/db/mongo"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/db/redis"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/http/handlers"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/memory"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/queue"
	"github.com/shuttlepass/ticket-portal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

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
		Service: "ticket-portal",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("portal stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	backendURL, err := url.Parse(cfg.BackendURL)
	if err != nil {
		return err
	}

	health := handlers.NewHealthDependenciesHandler(nil, nil)

	// --- Profile storage ---
	var storage ports.StorageProvider
	switch cfg.StorageDriver {
	case config.StorageRedis:
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer closeRedis(rdb, log)
		storage = redis.NewProvider(rdb, cfg.Redis.ProfileTTL, logger.Component("redis"))
		health.With("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	default:
		storage = memory.NewProvider(logger.Component("memory"))
	}

	// --- Audit trail ---
	var auditRepo ports.AuditRepository
	if cfg.Mongo.URI != "" {
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "ticket-portal"})
		if err != nil {
			return err
		}
		defer mongo.Disconnect(client, shutdownTimeout, log)
		auditRepo = mongo.NewAuditRepository(db)
		health.With("mongodb", func(ctx context.Context) error { return client.Ping(ctx, nil) })
	}

	audit := queue.NewDispatcher(cfg.AuditWorkers, service.NewAuditService(auditRepo, logger.Component("audit")), logger.Component("audit"))
	audit.Start(context.WithoutCancel(ctx))
	defer audit.Close()

	// --- Sessions ---
	client := backend.New(cfg.BackendURL, logger.Component("backend"))
	health.With("backend", backendPinger(cfg.BackendURL))

	resolver := service.NewResolver(client, logger.Component("resolver"),
		service.WithResolveTimeout(cfg.Resolve.Timeout),
		service.WithMaxAttempts(cfg.Resolve.MaxAttempts),
	)
	tabs := service.NewTabRegistry(storage, client, resolver, audit, logger.Component("session"),
		service.WithIdleTimeout(cfg.TabIdleTimeout),
	)
	defer tabs.Shutdown()

	routes := service.DefaultRoutes()
	e := api.NewRouter(api.Deps{
		Tabs:         tabs,
		Routes:       service.NewRouter(routes),
		Pages:        routes,
		Backend:      backendURL,
		Health:       health,
		SecureCookie: cfg.CookieSecure,
		Log:          logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.BackendURL).Str("storage", cfg.StorageDriver).Msg("portal listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// end the event streams first so Shutdown does not wait on them
	tabs.Shutdown()
	return e.Shutdown(shutdownCtx)
}

// backendPinger reports the backend reachable when it answers at all.
func backendPinger(baseURL string) handlers.Pinger {
	hc := &http.Client{Timeout: 2 * time.Second}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
		if err != nil {
			return err
		}
		res, err := hc.Do(req)
		if err != nil {
			return err
		}
		return res.Body.Close()
	}
}

func closeRedis(rdb *goredis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("closing redis")
	}
}
