package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shuttlepass/ticket-portal/internal/api/middleware"
)

const heartbeatInterval = 15 * time.Second

// Events handles GET /session/events: a server-sent event stream of the
// navigations the tab must perform because of changes it did not make
// (remote logout, identity change, expiry, finished resolution).
//
// @Summary      Navigation stream for the tab
// @Tags         session
// @Produce      text/event-stream
// @Param        tab  query  string  false  "Tab id (defaults to main)"
// @Success      200
// @Router       /session/events [get]
func (h *SessionHandler) Events(c echo.Context) error {
	sess, err := middleware.SessionFrom(c)
	if err != nil {
		return err
	}

	nav, stop := sess.Watch()
	defer stop()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	// the current state first, so a client never misses a transition
	if err := writeEvent(w, "state", toSessionResponse(sess.State())); err != nil {
		return nil
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case n, ok := <-nav:
			if !ok {
				_ = writeEvent(w, "closed", navigationEvent{Reason: "tab_closed"})
				return nil
			}
			if err := writeEvent(w, "navigate", navigationEvent{Path: n.Path, Reason: n.Reason}); err != nil {
				return nil
			}
		}
	}
}

func writeEvent(w *echo.Response, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
