package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

const (
	ctxAccount = "account"
	ctxRole    = "rol"
)

// Bearer verifies the Authorization header and injects the account and its
// role into the context.
func Bearer(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, msgMissingToken)
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidToken)
			}

			acc, err := svc.Identify(c.Request().Context(), parts[1])
			if err != nil {
				if errors.Is(err, domain.ErrSessionExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidToken)
				}
				return err
			}

			c.Set(ctxAccount, acc)
			c.Set(ctxRole, acc.Role)
			return next(c)
		}
	}
}

// RBAC lets through only the given roles. It must run after Bearer.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ctxRole).(domain.Role)
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, messageResponse{Message: msgForbidden})
			}
			return next(c)
		}
	}
}

func accountFrom(c echo.Context) (*Account, error) {
	acc, _ := c.Get(ctxAccount).(*Account)
	if acc == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, msgMissingToken)
	}
	return acc, nil
}
