package handlers

import (
	"github.com/gofiber/fiber/v2"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/middleware"
	"vibedojo-ledger/models"
	"vibedojo-ledger/services"
)

// SetupStreakRoutes registers POST /api/streak and, when debug is set, the xp-log counter
// used by launch checks to assert dedup.
func SetupStreakRoutes(app *fiber.App, log *logger.Logger, streaks *services.StreakTracker, awards *services.AwardEngine, debug bool) {
	secured := middleware.UserContextMiddleware(log)

	app.Post("/api/streak", secured, func(c *fiber.Ctx) error {
		res, err := streaks.Touch(c.UserContext(), currentUserID(c))
		if err != nil {
			return respondError(c, "failed to update streak", err)
		}
		return c.JSON(res)
	})

	if !debug {
		return
	}
	app.Get("/api/debug/xp-logs", secured, func(c *fiber.Ctx) error {
		action := models.XPAction(c.Query("action"))
		if !action.Valid() {
			return badRequest(c, "unknown action")
		}
		count, err := awards.CountLogs(c.UserContext(), currentUserID(c), action, c.Query("referenceId"))
		if err != nil {
			return respondError(c, "failed to count xp logs", err)
		}
		return c.JSON(fiber.Map{"count": count})
	})
}
