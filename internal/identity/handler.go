package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

const (
	msgInvalidCredentials = "Credenciales inválidas"
	msgUserExists         = "El email ya está registrado"
	msgMissingToken       = "Token requerido"
	msgInvalidToken       = "Token inválido o expirado"
	msgForbidden          = "Acceso denegado"
	msgInvalidPayload     = "Datos inválidos"
	msgInternal           = "Error interno del servidor"
)

type messageResponse struct {
	Message string `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"contraseña" validate:"required"`
}

type registerRequest struct {
	FirstName string `json:"nombre" validate:"required"`
	LastName  string `json:"apellido" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"contraseña" validate:"required,min=6"`
}

type userResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Email     string `json:"email"`
	Role      string `json:"rol"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	User        userResponse `json:"user"`
}

func toUserResponse(a *Account) userResponse {
	return userResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Role:      string(a.Role),
	}
}

// Handler serves the identity endpoints.
type Handler struct {
	svc *Service
}

// NewHandler returns a Handler over svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: msgInvalidPayload})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	}

	token, acc, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{AccessToken: token, User: toUserResponse(acc)})
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: msgInvalidPayload})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	}

	acc, err := h.svc.Register(c.Request().Context(), RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserResponse(acc))
}

// Me handles GET /api/users/me.
func (h *Handler) Me(c echo.Context) error {
	acc, err := accountFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(acc))
}

// AdminPing handles GET /api/admin/ping. It lets clients probe a 403 path.
func (h *Handler) AdminPing(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "pong"})
}

// NewErrorHandler renders every failure as {"message": "..."}.
func NewErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := http.StatusInternalServerError, msgInternal
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			code = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			} else {
				msg = http.StatusText(he.Code)
			}
		case errors.Is(err, domain.ErrInvalidCredentials):
			code, msg = http.StatusUnauthorized, msgInvalidCredentials
		case errors.Is(err, domain.ErrSessionExpired):
			code, msg = http.StatusUnauthorized, msgInvalidToken
		case errors.Is(err, domain.ErrUserExists):
			code, msg = http.StatusConflict, msgUserExists
		case errors.Is(err, domain.ErrForbidden):
			code, msg = http.StatusForbidden, msgForbidden
		default:
			log.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("unhandled error")
		}

		_ = c.JSON(code, messageResponse{Message: msg})
	}
}
