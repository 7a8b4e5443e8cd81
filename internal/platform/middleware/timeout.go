package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

var errRequestDeadline = errors.New("request deadline exceeded")

// RequestTimeout bounds each request context. Handlers run on the request
// goroutine and stop when their database or broker calls see the deadline.
// If that happens before anything was written the client gets a 504
// envelope. Paths under one of the skip prefixes keep the parent context.
func RequestTimeout(timeout time.Duration, skip ...string) echo.MiddlewareFunc {
	skipped := func(path string) bool {
		for _, prefix := range skip {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if skipped(req.URL.Path) {
				return next(c)
			}

			ctx, cancel := context.WithTimeoutCause(req.Context(), timeout, errRequestDeadline)
			defer cancel()
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if !errors.Is(context.Cause(ctx), errRequestDeadline) || c.Response().Committed {
				return err
			}
			return c.JSON(http.StatusGatewayTimeout, ErrorResponse{
				Success: false,
				Message: "request took longer than " + timeout.String(),
			})
		}
	}
}
