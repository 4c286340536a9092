package api

import (
	"net/url"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/shuttlepass/ticket-portal/docs"
	"github.com/shuttlepass/ticket-portal/internal/api/handler"
	"github.com/shuttlepass/ticket-portal/internal/api/middleware"
	"github.com/shuttlepass/ticket-portal/internal/core/service"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/http/handlers"
	"github.com/shuttlepass/ticket-portal/internal/pkg/validate"
)

// Tabs is what the portal needs from the tab registry.
type Tabs interface {
	middleware.SessionOpener
	handler.TabCloser
}

// Deps are the collaborators of the portal's HTTP surface.
type Deps struct {
	Tabs         Tabs
	Routes       *service.Router
	Pages        []service.Route
	Backend      *url.URL
	Health       *handlers.HealthDependenciesHandler
	SecureCookie bool
	Log          zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)
	e.Validator = validate.New()

	e.Pre(echomiddleware.RemoveTrailingSlash())

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("portal"))

	// --- Ops (no tab) ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	healthHandler := handlers.NewHealthHandler()
	e.GET("/health", healthHandler.Liveness) // liveness  – is the process alive?
	if d.Health != nil {
		e.GET("/health/ready", d.Health.Readiness) // readiness – are dependencies up?
	}

	// --- Tab-scoped routes ---
	tab := e.Group("", middleware.Tab(d.Tabs, d.SecureCookie))
	sessionHandler := handler.NewSessionHandler(d.Tabs)

	tab.POST("/login", sessionHandler.Login)
	tab.POST("/register", sessionHandler.Register)
	tab.POST("/logout", sessionHandler.Logout)
	tab.GET("/session", sessionHandler.State)
	tab.POST("/session/refresh", sessionHandler.Refresh)
	tab.GET("/session/events", sessionHandler.Events)
	tab.DELETE("/session/tab", sessionHandler.CloseTab)

	tab.Any("/api/*", echo.NotFoundHandler, middleware.BackendProxy(d.Backend, d.Log))

	// --- Pages ---
	guard := middleware.Guard(d.Routes)
	for _, page := range d.Pages {
		if page.Public {
			e.GET(page.Path, sessionHandler.Public(page.View))
			continue
		}
		tab.GET(page.Path, sessionHandler.View, guard)
	}
	tab.GET("/", sessionHandler.View, guard)
	tab.GET("/*", sessionHandler.View, guard)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Str("request_id", v.RequestID).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
