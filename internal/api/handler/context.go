package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/identitylab/user-access-api/internal/api/middleware"
	"github.com/identitylab/user-access-api/internal/core/domain"
)

// currentUser extracts the user attached by the Authenticate middleware.
// Its presence proves the gate ran; absence on a protected route means the
// route was wired without the gate and must fail closed.
func currentUser(c echo.Context) (*domain.User, error) {
	user, ok := c.Get(middleware.ContextUserKey).(*domain.User)
	if !ok || user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return user, nil
}
