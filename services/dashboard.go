package services

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
)

const heatmapDays = 365

type HeatmapDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Dashboard struct {
	Streak  StreakResult       `json:"streak"`
	Profile ProfileSummary     `json:"profile"`
	Heatmap []HeatmapDay       `json:"heatmap"`
	Badges  []models.UserBadge `json:"badges"`
}

// HeatmapInvalidator drops a user's cached activity once new ledger rows have committed.
type HeatmapInvalidator interface {
	InvalidateHeatmap(userID string)
}

type cachedHeatmap struct {
	days      []HeatmapDay
	timestamp time.Time
}

type DashboardService struct {
	DB       *gorm.DB
	streaks  *StreakTracker
	profiles *ProfileService
	badges   *BadgeService

	cache       *lru.Cache
	cacheExpiry time.Duration

	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewDashboardService(db *gorm.DB, streaks *StreakTracker, profiles *ProfileService, badges *BadgeService, cacheSize int, cacheExpiry time.Duration, log *logger.Logger, timeout time.Duration) *DashboardService {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, _ := lru.New(cacheSize)
	return &DashboardService{
		DB:          db,
		streaks:     streaks,
		profiles:    profiles,
		badges:      badges,
		cache:       cache,
		cacheExpiry: cacheExpiry,
		log:         log.With("service", "DashboardService"),
		timeout:     timeout,
		now:         time.Now,
	}
}

// Load touches the streak, then reads profile, heatmap and badges in parallel.
func (s *DashboardService) Load(ctx context.Context, userID string) (Dashboard, error) {
	var d Dashboard
	streak, err := s.streaks.Touch(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	d.Streak = streak

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum, err := s.profiles.Summary(gctx, userID)
		d.Profile = sum
		return err
	})
	g.Go(func() error {
		days, err := s.Heatmap(gctx, userID)
		d.Heatmap = days
		return err
	})
	g.Go(func() error {
		owned, err := s.badges.UserBadges(gctx, userID)
		d.Badges = owned
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Heatmap counts XP log entries per UTC+9 day over the last year, oldest first. Only days
// with activity are returned.
func (s *DashboardService) Heatmap(ctx context.Context, userID string) ([]HeatmapDay, error) {
	now := s.now()
	key := userID + "|" + DojoDate(now)
	if cached, ok := s.cache.Get(key); ok {
		entry := cached.(cachedHeatmap)
		if now.Sub(entry.timestamp) < s.cacheExpiry {
			return entry.days, nil
		}
		s.cache.Remove(key)
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	since := now.Add(-heatmapDays * 24 * time.Hour).UTC()
	var stamps []time.Time
	if err := s.DB.WithContext(ctx).Model(&models.XPLog{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Pluck("created_at", &stamps).Error; err != nil {
		return nil, storeErr("load heatmap", err)
	}

	days := bucketByDojoDate(stamps)
	s.cache.Add(key, cachedHeatmap{days: days, timestamp: now})
	return days, nil
}

// InvalidateHeatmap drops today's cached heatmap for a user.
func (s *DashboardService) InvalidateHeatmap(userID string) {
	s.cache.Remove(userID + "|" + DojoDate(s.now()))
}

func bucketByDojoDate(stamps []time.Time) []HeatmapDay {
	days := make([]HeatmapDay, 0)
	for _, ts := range stamps {
		date := DojoDate(ts)
		if n := len(days); n > 0 && days[n-1].Date == date {
			days[n-1].Count++
			continue
		}
		days = append(days, HeatmapDay{Date: date, Count: 1})
	}
	return days
}
