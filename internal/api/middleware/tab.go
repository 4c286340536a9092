// Package middleware binds requests to a browser profile and tab, guards
// protected pages and proxies backend calls.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/shuttlepass/ticket-portal/internal/core/service"
)

const (
	// ProfileCookie identifies the browser profile.
	ProfileCookie = "portal_profile"
	// TabHeader identifies the tab within the profile.
	TabHeader = "X-Tab-ID"
	// TabQueryParam is the fallback for clients that cannot set headers,
	// such as EventSource.
	TabQueryParam = "tab"
	// DefaultTab is used when the request names no tab.
	DefaultTab = "main"

	ctxSession = "session"

	profileCookieMaxAge = 365 * 24 * time.Hour
)

var tabIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type sessionKey struct{}

// SessionOpener opens the session of a tab.
type SessionOpener interface {
	Open(profileID, tabID string) (*service.Session, error)
}

// Tab resolves the request's profile and tab, issuing a profile cookie on
// first contact, and attaches the tab's session to both the echo context and
// the request context.
func Tab(tabs SessionOpener, secureCookie bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			profileID := profileFrom(c)
			if profileID == "" {
				profileID = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     ProfileCookie,
					Value:    profileID,
					Path:     "/",
					MaxAge:   int(profileCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}

			tabID := c.Request().Header.Get(TabHeader)
			if tabID == "" {
				tabID = c.QueryParam(TabQueryParam)
			}
			if tabID == "" {
				tabID = DefaultTab
			}
			if !tabIDPattern.MatchString(tabID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid tab id")
			}

			sess, err := tabs.Open(profileID, tabID)
			if err != nil {
				return err
			}

			c.Set(ctxSession, sess)
			c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), sess)))
			return next(c)
		}
	}
}

func profileFrom(c echo.Context) string {
	ck, err := c.Cookie(ProfileCookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(ck.Value); err != nil {
		return ""
	}
	return ck.Value
}

// SessionFrom returns the session attached by Tab.
func SessionFrom(c echo.Context) (*service.Session, error) {
	sess, _ := c.Get(ctxSession).(*service.Session)
	if sess == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "no tab session")
	}
	return sess, nil
}

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess *service.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session carried by ctx, if any.
func SessionFromContext(ctx context.Context) *service.Session {
	sess, _ := ctx.Value(sessionKey{}).(*service.Session)
	return sess
}
