package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
)

type ProfileService struct {
	DB      *gorm.DB
	log     *logger.Logger
	timeout time.Duration
}

func NewProfileService(db *gorm.DB, log *logger.Logger, timeout time.Duration) *ProfileService {
	return &ProfileService{DB: db, log: log.With("service", "ProfileService"), timeout: timeout}
}

// ProfileSummary is the derived progression view of a profile.
type ProfileSummary struct {
	UserID           string  `json:"user_id"`
	TotalXP          int64   `json:"total_xp"`
	Belt             Belt    `json:"belt"`
	NextBelt         *Belt   `json:"next_belt,omitempty"`
	Level            int     `json:"level"`
	NextLevelXP      *int64  `json:"next_level_xp,omitempty"`
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	LastActivityDate *string `json:"last_activity_date,omitempty"`
}

// EnsureProfile creates the profile row if missing (idempotent) and returns it.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID string) (*models.Profile, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	prof, err := ensureProfileTx(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, storeErr("ensure profile", err)
	}
	return prof, nil
}

// Summary returns totals, belt, level and streak for a user. Unknown users get a fresh profile.
func (s *ProfileService) Summary(ctx context.Context, userID string) (ProfileSummary, error) {
	prof, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return ProfileSummary{}, err
	}
	return summarize(prof), nil
}

func summarize(p *models.Profile) ProfileSummary {
	sum := ProfileSummary{
		UserID:           p.UserID,
		TotalXP:          p.TotalXP,
		Belt:             BeltForXP(p.TotalXP),
		Level:            LevelForXP(p.TotalXP),
		CurrentStreak:    p.CurrentStreak,
		LongestStreak:    p.LongestStreak,
		LastActivityDate: p.LastActivityDate,
	}
	if next, ok := NextBelt(p.TotalXP); ok {
		sum.NextBelt = &next
	}
	if xp, ok := NextLevelXP(p.TotalXP); ok {
		sum.NextLevelXP = &xp
	}
	return sum
}

// ensureProfileTx inserts an empty profile unless one exists, then reads it back.
func ensureProfileTx(tx *gorm.DB, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Profile{UserID: userID}).Error; err != nil {
		return nil, err
	}
	var prof models.Profile
	if err := tx.Where("user_id = ?", userID).First(&prof).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &prof, nil
}

func readTotalXP(tx *gorm.DB, userID string) (int64, error) {
	var total int64
	err := tx.Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Select("total_xp").
		Scan(&total).Error
	return total, err
}
