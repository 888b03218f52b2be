package middleware

import (
	"errors"
	"net/http"

	"smartephone/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AuthJWTが入れた値。どれか欠けていればok=false
func contextClaims(c echo.Context) (userID int64, role string, tv int, ok bool) {
	userID, ok1 := c.Get(CtxUserIDKey).(int64)
	role, ok2 := c.Get(CtxUserRoleKey).(string)
	tv, ok3 := c.Get(CtxTokenVersionKey).(int)
	ok = ok1 && ok2 && ok3 && userID > 0 && role != "" && tv >= 0
	return userID, role, tv, ok
}

// パスワード変更や停止で古いトークンを落とす。AuthJWTの後に置く
func TokenVersionGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _, tv, ok := contextClaims(c)
			if !ok {
				return unauthorized(c)
			}

			ctx := c.Request().Context()
			user, err := users.FindByID(ctx, userID)
			switch {
			case errors.Is(err, repository.ErrUserNotFound), err == nil && user == nil:
				return unauthorized(c)
			case err != nil:
				zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("token version lookup failed")
				return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
			case !user.IsActive:
				return forbidden(c, "forbidden")
			case user.TokenVersion != tv:
				zerolog.Ctx(ctx).Debug().Int("token_tv", tv).Int("current_tv", user.TokenVersion).Msg("stale token")
				return unauthorized(c)
			}
			return next(c)
		}
	}
}
