package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// request idを付けたloggerをrequestのcontextに入れ、完了時に1行出す。
// echoのRequestIDミドルウェアの後に置く
func RequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			logger := base.With().Str("request_id", rid).Logger()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

			err := next(c)
			if err != nil {
				//echoのエラーハンドラにレスポンスを書かせる
				c.Error(err)
			}

			status := c.Response().Status
			ev := zerolog.Ctx(c.Request().Context()).Info()
			if status >= 500 {
				ev = zerolog.Ctx(c.Request().Context()).Error().Err(err)
			}
			ev.Str("method", req.Method).
				Str("path", c.Path()).
				Str("uri", req.RequestURI).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Msg("request")

			return nil
		}
	}
}
