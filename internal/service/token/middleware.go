package token

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/andrevks/qrdine/internal/models"
)

// RequireLogin validates the access cookie and rotates the pair through the
// refresh token when the access token has expired.
func (t *TokenService) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		newAccess, newRefresh, _, err := t.CheckCookie(c)
		if err != nil {
			return err
		}

		if newRefresh != "" {
			c.SetCookie(CreateCookie("accessToken", newAccess, "/", time.Now().Add(AccessTTL)))
			c.SetCookie(CreateCookie("refreshToken", newRefresh, "/", time.Now().Add(RefreshTTL)))
		}
		return next(c)
	}
}

// RequireStaff is RequireLogin plus a role check.
func (t *TokenService) RequireStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return t.RequireLogin(func(c echo.Context) error {
		if Role(c) != models.RoleStaff {
			return echo.NewHTTPError(http.StatusForbidden, "staff only")
		}
		return next(c)
	})
}
