package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
)

type BeltChange struct {
	From Belt `json:"from"`
	To   Belt `json:"to"`
}

type LevelChange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Transitions is what changed between two XP totals. NewBadges only holds badges inserted
// by this detection, never ones the user already owned.
type Transitions struct {
	BeltUp    *BeltChange    `json:"beltUp,omitempty"`
	LevelUp   *LevelChange   `json:"levelUp,omitempty"`
	NewBadges []models.Badge `json:"newBadges"`
}

// TierTransitions diffs belt and level for two totals. It is pure.
func TierTransitions(oldXP, newXP int64) Transitions {
	t := Transitions{NewBadges: []models.Badge{}}
	if from, to := BeltForXP(oldXP), BeltForXP(newXP); from.ID != to.ID {
		t.BeltUp = &BeltChange{From: from, To: to}
	}
	if from, to := LevelForXP(oldXP), LevelForXP(newXP); from != to {
		t.LevelUp = &LevelChange{From: from, To: to}
	}
	return t
}

type TransitionDetector struct {
	DB         *gorm.DB
	curriculum *Curriculum
	log        *logger.Logger
	now        func() time.Time
}

func NewTransitionDetector(db *gorm.DB, curriculum *Curriculum, log *logger.Logger) *TransitionDetector {
	return &TransitionDetector{
		DB:         db,
		curriculum: curriculum,
		log:        log.With("service", "TransitionDetector"),
		now:        time.Now,
	}
}

// Detect reports belt/level changes between oldXP and newXP and awards every badge the user
// is now eligible for. completedChapterID is the chapter just completed, "" if none.
func (d *TransitionDetector) Detect(ctx context.Context, tx *gorm.DB, userID string, oldXP, newXP int64, completedChapterID string) (Transitions, error) {
	if tx == nil {
		tx = d.DB
	}
	tx = tx.WithContext(ctx)

	t := TierTransitions(oldXP, newXP)

	eligible, err := d.eligibleBadges(tx, userID, completedChapterID)
	if err != nil {
		return Transitions{}, err
	}
	for _, badge := range eligible {
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserBadge{UserID: userID, BadgeID: badge.ID, AwardedAt: d.now().UTC()})
		if res.Error != nil {
			return Transitions{}, fmt.Errorf("upsert user badge %s: %w", badge.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			t.NewBadges = append(t.NewBadges, badge)
			d.log.Info("🎖️ badge awarded", "user_id", userID, "badge", badge.ID)
		}
	}
	return t, nil
}

// eligibleBadges evaluates the catalog against the user's completed chapters.
func (d *TransitionDetector) eligibleBadges(tx *gorm.DB, userID, completedChapterID string) ([]models.Badge, error) {
	var completed []string
	if err := tx.Model(&models.Progress{}).
		Where("user_id = ? AND status = ?", userID, models.ProgressCompleted).
		Pluck("chapter_id", &completed).Error; err != nil {
		return nil, fmt.Errorf("load completed chapters: %w", err)
	}

	perPart := make(map[int]int)
	for _, id := range completed {
		if ch, ok := d.curriculum.Chapter(id); ok {
			perPart[ch.Part]++
		}
	}

	var out []models.Badge
	for _, badge := range models.BadgeCatalog {
		switch badge.Rule {
		case models.BadgeRuleFirstChapter:
			if len(completed) == 1 {
				out = append(out, badge)
			}
		case models.BadgeRulePartComplete:
			if size := d.curriculum.PartSize(badge.Part); size > 0 && perPart[badge.Part] == size {
				out = append(out, badge)
			}
		case models.BadgeRuleFullCurriculum:
			if completedChapterID == d.curriculum.FinalChapterID() && len(completed) == d.curriculum.Size() {
				out = append(out, badge)
			}
		}
	}
	return out, nil
}
