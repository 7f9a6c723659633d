package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/identitylab/user-access-api/internal/core/domain"
)

// RequireRole enforces role-based access control on routes behind
// Authenticate. An empty role list admits any authenticated user. Denials
// respond 401, matching the API's external contract for insufficient
// credentials.
func RequireRole(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(ContextUserKey).(*domain.User)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
			}
			if len(allowed) > 0 {
				if _, ok := allowed[user.Role]; !ok {
					return echo.NewHTTPError(http.StatusUnauthorized, "insufficient role")
				}
			}
			return next(c)
		}
	}
}
