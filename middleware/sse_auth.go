package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/services"
)

// SSEAuthMiddleware authenticates EventSource requests, which cannot send headers, from the
// `token` query parameter.
//
//	app.Get("/user/notifications/stream", middleware.SSEAuthMiddleware(authClient, log), svc.StreamUserNotificationsSSE)
func SSEAuthMiddleware(authClient *services.AuthServiceClient, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		if accessToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
			})
		}

		resp, err := authClient.ValidateToken(c.UserContext(), accessToken)
		if err != nil {
			log.Warn("[SSEAuth] ❌ validation failed", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("user_id", resp.UserID)
		c.Locals("user_roles", resp.Roles)
		log.Debug("[SSEAuth] ✅ authenticated", "user_id", resp.UserID)
		return c.Next()
	}
}
