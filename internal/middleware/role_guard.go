package middleware

import (
	"net/http"

	"foodorder/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// RequireRoleは指定roleのときだけ通す。
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("Not authenticated"))
			}

			for _, r := range roles {
				if id.Role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, errorJSON("Insufficient permissions"))
		}
	}
}
