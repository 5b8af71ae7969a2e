package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"vibedojo-ledger/handlers"
	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
	"vibedojo-ledger/services"
	"vibedojo-ledger/store/storetest"
)

func TestNotificationRoutes(t *testing.T) {
	db := storetest.DB(t)
	log := logger.NewNop()
	svc := services.NewNotificationService(db, log, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, "u1", models.NotificationBadge, "Badge earned: First Steps", "🥋", ""))
	require.NoError(t, svc.Notify(ctx, "u1", models.NotificationLevelUp, "Level 2 reached", "⬆️", ""))
	require.NoError(t, svc.Notify(ctx, "u2", models.NotificationLevelUp, "Level 2 reached", "⬆️", ""))

	app := fiber.New()
	handlers.SetupNotificationRoutes(app, log, svc)

	get := func(path string) (*http.Response, error) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-User-ID", "u1")
		return app.Test(req, -1)
	}

	resp, err := get("/user/notifications")
	require.NoError(t, err)
	var items []models.Notification
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	resp.Body.Close()
	require.Len(t, items, 2)

	req := httptest.NewRequest(http.MethodPatch, "/notifications/"+items[0].ID+"/viewed", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// another user's notification is not found for u1
	var foreign models.Notification
	require.NoError(t, db.Where("user_id = ?", "u2").First(&foreign).Error)
	req = httptest.NewRequest(http.MethodPatch, "/notifications/"+foreign.ID+"/viewed", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = get("/user/notifications/counts")
	require.NoError(t, err)
	var counts map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&counts))
	resp.Body.Close()
	require.Equal(t, int64(2), counts["total_count"])
	require.Equal(t, int64(1), counts["unviewed_count"])

	resp, err = get("/user/notifications?viewed=false")
	require.NoError(t, err)
	items = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	resp.Body.Close()
	require.Len(t, items, 1)

	resp, err = get("/user/notifications?limit=zero")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
