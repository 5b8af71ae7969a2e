package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"vibedojo-ledger/models"
)

// StreamUserNotificationsSSE pushes new notifications for the authenticated user as
// server-sent events, polling the table every few seconds.
func (s *NotificationService) StreamUserNotificationsSSE(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	done := c.Context().Done()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()

		// Cursor starts at the newest existing row so only fresh notifications are sent.
		cursor, err := s.latestCursor(userID)
		if err != nil {
			s.log.Warn("sse cursor init failed", "user_id", userID, "error", err)
		}

		_, _ = w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				fresh, err := s.notificationsAfter(userID, cursor)
				if err != nil {
					s.log.Warn("sse poll failed", "user_id", userID, "error", err)
					continue
				}
				if len(fresh) == 0 {
					// keepalive comment; a write error means the client went away
					_, _ = w.WriteString(":\n\n")
				}
				for _, n := range fresh {
					payload, _ := json.Marshal(n)
					fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload)
				}
				if len(fresh) > 0 {
					last := fresh[len(fresh)-1]
					cursor = notificationCursor{createdAt: last.CreatedAt, id: last.ID}
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
	return nil
}

// notificationCursor orders rows by (created_at, id). Ids are UUIDv7, so rows sharing a
// timestamp still sort in insert order.
type notificationCursor struct {
	createdAt time.Time
	id        string
}

func (s *NotificationService) latestCursor(userID string) (notificationCursor, error) {
	var latest models.Notification
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notificationCursor{}, nil
	}
	if err != nil {
		return notificationCursor{}, err
	}
	return notificationCursor{createdAt: latest.CreatedAt, id: latest.ID}, nil
}

func (s *NotificationService) notificationsAfter(userID string, cur notificationCursor) ([]models.Notification, error) {
	q := s.DB.Where("user_id = ?", userID)
	if !cur.createdAt.IsZero() {
		q = q.Where("(created_at > ? OR (created_at = ? AND id > ?))", cur.createdAt, cur.createdAt, cur.id)
	}
	var rows []models.Notification
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
