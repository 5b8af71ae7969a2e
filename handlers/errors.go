package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"vibedojo-ledger/services"
)

// statusFor maps service sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidAction),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidRating):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrChapterNotFound), errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrChapterCompleted):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrStoreTimeout):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, message string, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": message,
		"cause": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
