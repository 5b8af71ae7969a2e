package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"vibedojo-ledger/logger"
)

// RequestLogger logs one line per request with status and latency.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		kv := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if uid, ok := c.Locals("user_id").(string); ok && uid != "" {
			kv = append(kv, "user_id", uid)
		}
		switch {
		case status >= 500:
			log.Error("request", kv...)
		case status >= 400:
			log.Warn("request", kv...)
		default:
			log.Debug("request", kv...)
		}
		return err
	}
}
