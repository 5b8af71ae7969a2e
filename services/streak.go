package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
)

// DojoZone is the fixed UTC+9 calendar every streak and heatmap day is evaluated in,
// regardless of where the user is.
var DojoZone = time.FixedZone("UTC+9", 9*60*60)

const dateLayout = "2006-01-02"

// DojoDate returns the UTC+9 calendar date of t as YYYY-MM-DD.
func DojoDate(t time.Time) string {
	return t.In(DojoZone).Format(dateLayout)
}

type StreakResult struct {
	CurrentStreak int  `json:"currentStreak"`
	LongestStreak int  `json:"longestStreak"`
	IsNewDay      bool `json:"isNewDay"`
}

type StreakTracker struct {
	DB      *gorm.DB
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewStreakTracker(db *gorm.DB, log *logger.Logger, timeout time.Duration) *StreakTracker {
	return &StreakTracker{
		DB:      db,
		log:     log.With("service", "StreakTracker"),
		timeout: timeout,
		now:     time.Now,
	}
}

// Touch records activity for today. The first call of a calendar day extends the streak
// (or restarts it at 1 after a gap); later calls that day change nothing and report
// IsNewDay=false.
func (s *StreakTracker) Touch(ctx context.Context, userID string) (StreakResult, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()
	db := s.DB.WithContext(ctx)

	prof, err := ensureProfileTx(db, userID)
	if err != nil {
		return StreakResult{}, storeErr("touch streak", err)
	}

	now := s.now()
	today := DojoDate(now)
	yesterday := DojoDate(now.Add(-24 * time.Hour))

	// Dates compare lexically. A stored date ahead of today (clock skew) counts as today.
	if prof.LastActivityDate != nil && *prof.LastActivityDate >= today {
		return StreakResult{CurrentStreak: prof.CurrentStreak, LongestStreak: prof.LongestStreak}, nil
	}

	next := 1
	if prof.LastActivityDate != nil && *prof.LastActivityDate == yesterday {
		next = prof.CurrentStreak + 1
	}
	longest := prof.LongestStreak
	if next > longest {
		longest = next
	}

	// Compare-and-swap on the date we read: of two concurrent first touches only one matches.
	q := db.Model(&models.Profile{}).Where("user_id = ?", userID)
	if prof.LastActivityDate == nil {
		q = q.Where("last_activity_date IS NULL")
	} else {
		q = q.Where("last_activity_date = ?", *prof.LastActivityDate)
	}
	res := q.Updates(map[string]interface{}{
		"current_streak":     next,
		"longest_streak":     longest,
		"last_activity_date": today,
	})
	if res.Error != nil {
		return StreakResult{}, storeErr("touch streak", res.Error)
	}
	if res.RowsAffected == 0 {
		var cur models.Profile
		if err := db.Where("user_id = ?", userID).First(&cur).Error; err != nil {
			return StreakResult{}, storeErr("touch streak", err)
		}
		s.log.Debug("streak touch lost race", "user_id", userID, "date", today)
		return StreakResult{CurrentStreak: cur.CurrentStreak, LongestStreak: cur.LongestStreak}, nil
	}

	s.log.Info("🔥 streak touched", "user_id", userID, "date", today, "current_streak", next)
	return StreakResult{CurrentStreak: next, LongestStreak: longest, IsNewDay: true}, nil
}
