package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type ctxKey string

const (
	requestIDKey    ctxKey = "request_id"
	loggerKey       ctxKey = "logger"
	loggerLocalsKey        = "logger"
)

// RequestIDLogMiddleware builds a logger tagged with the request ID and client
// IP. It is stored both in the user context, for services, and in Locals,
// which survive the WebSocket upgrade.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		if rid == "" {
			return c.Next()
		}

		reqLogger := slog.Default().With("request_id", rid, "ip", c.IP())

		ctx := context.WithValue(c.UserContext(), requestIDKey, rid)
		ctx = context.WithValue(ctx, loggerKey, reqLogger)
		c.SetUserContext(ctx)
		c.Locals(loggerLocalsKey, reqLogger)

		return c.Next()
	}
}

// LoggerFromCtx extracts the per-request slog.Logger from a context.
// Falls back to the default logger if none is set.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// requestLogger returns the logger stored in Locals by RequestIDLogMiddleware.
// It takes the Locals value so it works for both *fiber.Ctx and *websocket.Conn.
func requestLogger(local interface{}) *slog.Logger {
	if l, ok := local.(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
