package middleware

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

// BackendProxy forwards requests to the backend with the tab's bearer token.
// A 401 on a request that carried a token ends the tab's session; any other
// status, 403 included, passes through untouched.
func BackendProxy(target *url.URL, log zerolog.Logger) echo.MiddlewareFunc {
	proxy := echomiddleware.ProxyWithConfig(echomiddleware.ProxyConfig{
		Balancer: echomiddleware.NewRoundRobinBalancer([]*echomiddleware.ProxyTarget{{URL: target}}),
		ModifyResponse: func(res *http.Response) error {
			if res.StatusCode != http.StatusUnauthorized || res.Request.Header.Get(echo.HeaderAuthorization) == "" {
				return nil
			}
			sess := SessionFromContext(res.Request.Context())
			if sess == nil {
				return nil
			}
			if sess.Invalidate(res.Request.Context(), domain.ErrSessionExpired) {
				log.Info().
					Str("profile", sess.ProfileID()).
					Str("tab", sess.TabID()).
					Str("path", res.Request.URL.Path).
					Msg("backend rejected token, session cleared")
			}
			return nil
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		forward := proxy(next)
		return func(c echo.Context) error {
			req := c.Request()
			req.Header.Del(echo.HeaderAuthorization)
			req.Header.Del(echo.HeaderCookie)
			req.Header.Del(TabHeader)

			if sess := SessionFromContext(req.Context()); sess != nil {
				if token := sess.Token(req.Context()); token != "" {
					req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
				}
			}
			return forward(c)
		}
	}
}
