package handlers

import (
	"github.com/gofiber/fiber/v2"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/middleware"
	"vibedojo-ledger/services"
)

// SetupPublicRoutes registers the unauthenticated catalog endpoints.
func SetupPublicRoutes(app *fiber.App, curriculum *services.Curriculum, badgeService *services.BadgeService) {
	app.Get("/chapters", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"parts": curriculum.Parts()})
	})

	app.Get("/badges", func(c *fiber.Ctx) error {
		badges, err := badgeService.Catalog(c.UserContext())
		if err != nil {
			return respondError(c, "failed to list badges", err)
		}
		return c.JSON(badges)
	})
}

func SetupProgressionRoutes(
	app *fiber.App,
	log *logger.Logger,
	profileService *services.ProfileService,
	progressService *services.ProgressService,
	badgeService *services.BadgeService,
	dashboardService *services.DashboardService,
) {
	// 🔐 each secured route carries the user context middleware explicitly
	secured := middleware.UserContextMiddleware(log)

	app.Get("/user/progress", secured, func(c *fiber.Ctx) error {
		summary, err := profileService.Summary(c.UserContext(), currentUserID(c))
		if err != nil {
			return respondError(c, "failed to load progress", err)
		}
		return c.JSON(summary)
	})

	app.Get("/user/progress/chapters", secured, func(c *fiber.Ctx) error {
		rows, err := progressService.ListProgress(c.UserContext(), currentUserID(c))
		if err != nil {
			return respondError(c, "failed to list chapter progress", err)
		}
		return c.JSON(rows)
	})

	app.Get("/user/progress/badges", secured, func(c *fiber.Ctx) error {
		owned, err := badgeService.UserBadges(c.UserContext(), currentUserID(c))
		if err != nil {
			return respondError(c, "failed to list badges", err)
		}
		return c.JSON(owned)
	})

	// Dashboard load touches the streak; refreshing the same day does not increment it.
	app.Get("/user/dashboard", secured, func(c *fiber.Ctx) error {
		d, err := dashboardService.Load(c.UserContext(), currentUserID(c))
		if err != nil {
			return respondError(c, "failed to load dashboard", err)
		}
		return c.JSON(d)
	})
}
