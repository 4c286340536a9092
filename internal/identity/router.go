package identity

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/pkg/validate"
)

// NewRouter builds the identity API.
func NewRouter(svc *Service, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.New()
	e.HTTPErrorHandler = NewErrorHandler(log)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	h := NewHandler(svc)
	bearer := Bearer(svc)

	api := e.Group("/api")
	api.POST("/auth/login", h.Login)
	api.POST("/auth/register", h.Register)
	api.GET("/users/me", h.Me, bearer)
	api.GET("/admin/ping", h.AdminPing, bearer, RBAC(domain.RoleAdmin))

	return e
}
