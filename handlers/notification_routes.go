package handlers

import (
	"github.com/gofiber/fiber/v2"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/middleware"
	"vibedojo-ledger/services"
)

func SetupNotificationRoutes(app *fiber.App, log *logger.Logger, notificationService *services.NotificationService) {
	secured := middleware.UserContextMiddleware(log)

	app.Get("/user/notifications", secured, notificationService.GetUserNotifications)
	app.Get("/user/notifications/counts", secured, notificationService.GetUserNotificationCounts)
	app.Patch("/notifications/:id/viewed", secured, notificationService.MarkNotificationAsViewed)
}

// SetupNotificationStreamRoute registers the SSE stream. Browsers connect to it directly, so
// it authenticates from the token query parameter and must be registered before the gateway
// middleware.
func SetupNotificationStreamRoute(app *fiber.App, log *logger.Logger, notificationService *services.NotificationService, authClient *services.AuthServiceClient) {
	app.Get("/user/notifications/stream",
		middleware.SSEAuthMiddleware(authClient, log),
		notificationService.StreamUserNotificationsSSE,
	)
}
