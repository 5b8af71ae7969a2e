package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"vibedojo-ledger/models"
)

type BadgeService struct {
	DB      *gorm.DB
	timeout time.Duration
}

func NewBadgeService(db *gorm.DB, timeout time.Duration) *BadgeService {
	return &BadgeService{DB: db, timeout: timeout}
}

// Catalog returns every badge, ordered as seeded.
func (s *BadgeService) Catalog(ctx context.Context) ([]models.Badge, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var badges []models.Badge
	if err := s.DB.WithContext(ctx).Order("created_at ASC, id ASC").Find(&badges).Error; err != nil {
		return nil, storeErr("list badges", err)
	}
	return badges, nil
}

// UserBadges returns the badges a user owns, newest first.
func (s *BadgeService) UserBadges(ctx context.Context, userID string) ([]models.UserBadge, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var owned []models.UserBadge
	if err := s.DB.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&owned).Error; err != nil {
		return nil, storeErr("list user badges", err)
	}
	return owned, nil
}
