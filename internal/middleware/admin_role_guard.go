package middleware

import (
	"smartephone/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// /admin配下用。roleはトークンのclaimsを信じる（tvはTokenVersionGuardで確認済み）
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, role, _, ok := contextClaims(c)
			if !ok {
				return unauthorized(c)
			}
			if model.Role(role) != model.RoleAdmin {
				return forbidden(c, "admin only")
			}
			return next(c)
		}
	}
}
