package middleware

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger writes one line per request. Server errors log at error level,
// client errors at warn, everything else at info.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			res := c.Response()
			status := res.Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}

			level := zerolog.InfoLevel
			if status >= 500 {
				level = zerolog.ErrorLevel
			} else if status >= 400 {
				level = zerolog.WarnLevel
			}

			req := c.Request()
			rid, _ := c.Get("request_id").(string)
			uid, _ := c.Get("user_id").(string)
			evt := logger.WithLevel(level).
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("route", c.Path()).
				Int("status", status).
				Int64("bytes_out", res.Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())
			if uid != "" {
				evt = evt.Str("user_id", uid)
			}
			if err != nil && status >= 500 {
				evt = evt.Err(err)
			}
			evt.Msg("request")

			return err
		}
	}
}
