package handlers

import (
	"github.com/gofiber/fiber/v2"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/middleware"
	"vibedojo-ledger/services"
)

func SetupChapterRoutes(app *fiber.App, log *logger.Logger, progressService *services.ProgressService, completionService *services.CompletionService) {
	secured := middleware.UserContextMiddleware(log)

	app.Post("/chapters/:id/start", secured, func(c *fiber.Ctx) error {
		row, err := progressService.StartChapter(c.UserContext(), currentUserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, "failed to start chapter", err)
		}
		return c.JSON(row)
	})

	app.Post("/chapters/:id/complete", secured, func(c *fiber.Ctx) error {
		var in services.CompletionInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "Invalid request body")
		}
		in.ChapterID = c.Params("id")

		res, err := completionService.Complete(c.UserContext(), currentUserID(c), in)
		if err != nil {
			return respondError(c, "failed to complete chapter", err)
		}
		return c.JSON(res)
	})
}
