package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
)

type NotificationService struct {
	DB      *gorm.DB
	log     *logger.Logger
	timeout time.Duration
	poll    time.Duration
}

func NewNotificationService(db *gorm.DB, log *logger.Logger, timeout time.Duration) *NotificationService {
	return &NotificationService{
		DB:      db,
		log:     log.With("service", "NotificationService"),
		timeout: timeout,
		poll:    2 * time.Second,
	}
}

// Notify inserts an unviewed in-app notification.
func (s *NotificationService) Notify(ctx context.Context, userID string, kind models.NotificationKind, title, emoji, body string) error {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	n := models.Notification{
		ID:        id.String(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Emoji:     emoji,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return storeErr("create notification", err)
	}
	return nil
}

// --- User Handlers ---

// GetUserNotifications lists the authenticated user's notifications, newest first.
// Query: limit (default 50, max 200), viewed=all|true|false.
func (s *NotificationService) GetUserNotifications(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	limit := 50
	if v := c.Query("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit parameter"})
		}
		if l > 200 {
			l = 200
		}
		limit = l
	}

	ctx, cancel := withStoreTimeout(c.UserContext(), s.timeout)
	defer cancel()

	query := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	switch strings.ToLower(c.Query("viewed")) {
	case "true":
		query = query.Where("viewed = ?", true)
	case "false":
		query = query.Where("viewed = ?", false)
	}

	var items []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Find(&items).Error; err != nil {
		s.log.Error("fetch notifications failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch notifications"})
	}
	return c.JSON(items)
}

// GetUserNotificationCounts returns total and unviewed counts. Clients poll this.
func (s *NotificationService) GetUserNotificationCounts(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	ctx, cancel := withStoreTimeout(c.UserContext(), s.timeout)
	defer cancel()

	var total, unviewed int64
	base := func() *gorm.DB {
		return s.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	}
	if err := base().Count(&total).Error; err != nil {
		s.log.Error("count notifications failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error counting notifications"})
	}
	if err := base().Where("viewed = ?", false).Count(&unviewed).Error; err != nil {
		s.log.Error("count unviewed notifications failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error counting notifications"})
	}

	return c.JSON(fiber.Map{
		"total_count":    total,
		"unviewed_count": unviewed,
	})
}

// MarkNotificationAsViewed marks one notification viewed (idempotent).
func (s *NotificationService) MarkNotificationAsViewed(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification ID"})
	}

	ctx, cancel := withStoreTimeout(c.UserContext(), s.timeout)
	defer cancel()

	var n models.Notification
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found or not owned"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if !n.Viewed {
		if err := s.DB.WithContext(ctx).Model(&n).Update("viewed", true).Error; err != nil {
			s.log.Error("mark notification viewed failed", "id", id, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark as viewed"})
		}
	}
	return c.JSON(fiber.Map{"message": "OK", "notification_id": n.ID, "viewed": true})
}
