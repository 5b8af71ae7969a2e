package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/middleware"
	"vibedojo-ledger/workers"
)

type Reconciler interface {
	Run(ctx context.Context) (workers.ReconcileReport, error)
}

func SetupAdminRoutes(app *fiber.App, log *logger.Logger, reconciler Reconciler) {
	admin := app.Group("/admin", middleware.UserContextMiddleware(log), middleware.RequireRole("admin"))

	admin.Post("/ledger/reconcile", func(c *fiber.Ctx) error {
		report, err := reconciler.Run(c.UserContext())
		if err != nil {
			return respondError(c, "ledger reconciliation failed", err)
		}
		return c.JSON(report)
	})
}
