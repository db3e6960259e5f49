package logger

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// FiberMiddleware tags every request with a request id, stores a child
// logger in the request's user context and logs the completed request.
func FiberMiddleware(l zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(headerRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}

		child := l.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Method()).
			Str(FieldPath, c.Path()).
			Str(FieldClientIP, c.IP()).
			Logger()

		c.Set(headerRequestID, reqID)
		c.SetUserContext(WithLogger(c.UserContext(), child))

		err := c.Next()

		// Identity is set by the auth middleware, read it after c.Next().
		evt := child.Info().
			Int(FieldStatus, c.Response().StatusCode()).
			Int64(FieldLatency, time.Since(start).Milliseconds())
		if identity, ok := c.Locals("identity").(string); ok && identity != "" {
			evt = evt.Str(FieldIdentity, identity)
		}
		if err != nil {
			evt = evt.Err(err)
		}
		evt.Msg("request completed")

		return err
	}
}
