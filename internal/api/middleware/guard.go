package middleware

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/shuttlepass/ticket-portal/internal/core/service"
)

const (
	ctxDecision = "decision"

	// NoticeParam carries a user-facing message to the redirect target.
	NoticeParam = "notice"

	loadingRetryAfter = "1"
)

// Guard applies the route guard to page requests. Redirects are answered
// with 303 and a Location header, a resolving session with 202 and
// Retry-After; render decisions reach next via DecisionFrom.
func Guard(router *service.Router) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := SessionFrom(c)
			if err != nil {
				return err
			}

			d := router.Decide(sess.State(), c.Request().URL.Path)
			switch d.Kind {
			case service.DecisionRedirect:
				loc := d.Path
				if d.Notice != "" {
					loc += "?" + url.Values{NoticeParam: {d.Notice}}.Encode()
				}
				return c.Redirect(http.StatusSeeOther, loc)

			case service.DecisionLoading:
				c.Response().Header().Set("Retry-After", loadingRetryAfter)
				return c.JSON(http.StatusAccepted, map[string]string{"view": d.View})
			}

			c.Set(ctxDecision, d)
			return next(c)
		}
	}
}

// DecisionFrom returns the render decision made by Guard.
func DecisionFrom(c echo.Context) (service.Decision, bool) {
	d, ok := c.Get(ctxDecision).(service.Decision)
	return d, ok
}
