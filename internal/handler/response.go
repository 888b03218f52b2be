package handler

import (
	"net/http"

	"smartephone/internal/middleware"
	"smartephone/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// usecaseのHTTPErrorをレスポンスにする。原因はログにだけ出す
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			zerolog.Ctx(c.Request().Context()).Error().Err(he.Err).Str("message", he.Message).Msg("request failed")
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("unexpected error")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// AuthJWTが入れたuser_id
func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	id, ok := v.(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
