package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shuttlepass/ticket-portal/internal/api/middleware"
	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
)

// TabCloser tears down a tab's session.
type TabCloser interface {
	Close(profileID, tabID string) error
}

// SessionHandler serves login, registration, logout and the tab's session.
type SessionHandler struct {
	tabs TabCloser
}

func NewSessionHandler(tabs TabCloser) *SessionHandler {
	return &SessionHandler{tabs: tabs}
}

// Login handles POST /login.
//
// @Summary      Sign in
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        X-Tab-ID  header    string        false  "Tab id (defaults to main)"
// @Param        body      body      loginRequest  true   "Credentials"
// @Success      200       {object}  redirectResponse
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Failure      503       {object}  errorResponse
// @Router       /login [post]
func (h *SessionHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sess, err := middleware.SessionFrom(c)
	if err != nil {
		return err
	}

	user, err := sess.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, redirectResponse{
		Redirect: user.Role.HomePath(),
		User:     toUserBody(user),
	})
}

// Register handles POST /register.
//
// @Summary      Create an account
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  redirectResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /register [post]
func (h *SessionHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sess, err := middleware.SessionFrom(c)
	if err != nil {
		return err
	}

	err = sess.Register(c.Request().Context(), ports.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, redirectResponse{Redirect: domain.PathLogin})
}

// Logout handles POST /logout. It always succeeds.
//
// @Summary      Sign out
// @Tags         session
// @Produce      json
// @Success      200  {object}  redirectResponse
// @Router       /logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	sess, err := middleware.SessionFrom(c)
	if err != nil {
		return err
	}
	sess.Logout(c.Request().Context())
	return c.JSON(http.StatusOK, redirectResponse{Redirect: domain.PathLogin})
}

// State handles GET /session.
//
// @Summary      Current session state of the tab
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /session [get]
func (h *SessionHandler) State(c echo.Context) error {
	sess, err := middleware.SessionFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(sess.State()))
}

// Refresh handles POST /session/refresh: re-validates the stored token,
// typically after a resolution error.
//
// @Summary      Re-validate the stored session
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /session/refresh [post]
func (h *SessionHandler) Refresh(c echo.Context) error {
	sess, err := middleware.SessionFrom(c)
	if err != nil {
		return err
	}
	// a client that hangs up must not turn the tab into a resolution error
	st := sess.Resolve(context.WithoutCancel(c.Request().Context()))
	return c.JSON(http.StatusOK, toSessionResponse(st))
}

// CloseTab handles DELETE /session/tab.
//
// @Summary      Close the tab and stop cross-tab sync for it
// @Tags         session
// @Success      204
// @Router       /session/tab [delete]
func (h *SessionHandler) CloseTab(c echo.Context) error {
	sess, err := middleware.SessionFrom(c)
	if err != nil {
		return err
	}
	if err := h.tabs.Close(sess.ProfileID(), sess.TabID()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Public renders a page that never consults the session, so no tab is
// opened and no identity check is made.
//
// @Summary      Public page view
// @Tags         pages
// @Produce      json
// @Success      200  {object}  viewResponse
// @Router       /login [get]
// @Router       /register [get]
func (h *SessionHandler) Public(view string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, viewResponse{View: view, Notice: c.QueryParam(middleware.NoticeParam)})
	}
}

// View renders the page allowed by the route guard.
//
// @Summary      Page view
// @Description  Guarded page: 200 with the view, 303 to another page, or 202 while the session is resolving.
// @Tags         pages
// @Produce      json
// @Param        path  path      string  true  "Page path, e.g. home, admin, driver"
// @Success      200   {object}  viewResponse
// @Success      202   {object}  map[string]string
// @Success      303
// @Router       /{path} [get]
func (h *SessionHandler) View(c echo.Context) error {
	d, ok := middleware.DecisionFrom(c)
	if !ok {
		return errors.New("view reached without a guard decision")
	}

	resp := viewResponse{View: d.View, Notice: c.QueryParam(middleware.NoticeParam)}
	if sess, err := middleware.SessionFrom(c); err == nil {
		if auth, ok := sess.State().(domain.Authenticated); ok {
			resp.User = toUserBody(auth.User)
		}
	}
	return c.JSON(http.StatusOK, resp)
}
