package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"vibedojo-ledger/logger"
)

// UserContextMiddleware reads the identity the gateway forwards (X-User-ID, X-User-Roles)
// into c.Locals("user_id") and c.Locals("user_roles"). Requests without a user id are
// rejected.
func UserContextMiddleware(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Warn("❌ [USER_CTX] X-User-ID missing on secured route", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID: request must come through the gateway with auth context",
			})
		}

		roles := splitRoles(c.Get("X-User-Roles"))
		c.Locals("user_id", userID)
		c.Locals("user_roles", roles)

		log.Debug("👤 [USER_CTX]", "user_id", userID, "roles", roles, "path", c.Path())
		return c.Next()
	}
}

// RequireRole rejects requests whose roles (set by UserContextMiddleware) lack role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]string)
		for _, r := range roles {
			if strings.EqualFold(r, role) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "forbidden",
			"cause": "role " + role + " required",
		})
	}
}

func splitRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
