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

// Announcer publishes a completion outside the app (Discord).
type Announcer interface {
	AnnounceCompletion(ctx context.Context, userID string, chapter models.Chapter, res CompletionResult) error
}

type CompletionInput struct {
	ChapterID          string `json:"-"`
	DifficultyRating   int    `json:"difficultyRating"`
	SatisfactionRating int    `json:"satisfactionRating"`
	ReviewText         string `json:"reviewText,omitempty"`
	QuizPerfect        bool   `json:"quizPerfect"`
}

type CompletionResult struct {
	ChapterID        string         `json:"chapterId"`
	AppliedXP        int64          `json:"appliedXp"`
	QuizBonusApplied bool           `json:"quizBonusApplied"`
	OldTotalXP       int64          `json:"-"`
	TotalXP          int64          `json:"totalXp"`
	BeltUp           *BeltChange    `json:"beltUp,omitempty"`
	LevelUp          *LevelChange   `json:"levelUp,omitempty"`
	NewBadges        []models.Badge `json:"newBadges"`
	ReviewPostID     string         `json:"reviewPostId,omitempty"`
}

// CompletionService orchestrates a chapter completion: progress, awards, transitions, review
// post, then best-effort notifications.
type CompletionService struct {
	DB         *gorm.DB
	curriculum *Curriculum
	awards     *AwardEngine
	detector   *TransitionDetector
	community  *CommunityService
	streaks    *StreakTracker
	weights    XPWeights

	dispatcher TaskDispatcher
	notifier   Notifier
	announcer  Announcer
	heatmaps   HeatmapInvalidator

	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewCompletionService(
	db *gorm.DB,
	curriculum *Curriculum,
	awards *AwardEngine,
	detector *TransitionDetector,
	community *CommunityService,
	streaks *StreakTracker,
	log *logger.Logger,
	timeout time.Duration,
) *CompletionService {
	return &CompletionService{
		DB:         db,
		curriculum: curriculum,
		awards:     awards,
		detector:   detector,
		community:  community,
		streaks:    streaks,
		weights:    DefaultXPWeights,
		log:        log.With("service", "CompletionService"),
		timeout:    timeout,
		now:        time.Now,
	}
}

// SetSideEffects wires the fire-and-forget collaborators. Any of them may be nil.
func (s *CompletionService) SetSideEffects(dispatcher TaskDispatcher, notifier Notifier, announcer Announcer) {
	s.dispatcher = dispatcher
	s.notifier = notifier
	s.announcer = announcer
}

func (s *CompletionService) SetHeatmapInvalidator(h HeatmapInvalidator) {
	s.heatmaps = h
}

// Complete marks a chapter completed and grants its XP. Progress, chapter reward, quiz bonus
// and badge inserts commit together or not at all. The review post and notifications run
// afterwards and never fail the call.
func (s *CompletionService) Complete(ctx context.Context, userID string, in CompletionInput) (CompletionResult, error) {
	if !validRating(in.DifficultyRating) || !validRating(in.SatisfactionRating) {
		return CompletionResult{}, ErrInvalidRating
	}
	chapter, ok := s.curriculum.Chapter(in.ChapterID)
	if !ok {
		return CompletionResult{}, fmt.Errorf("%w: %q", ErrChapterNotFound, in.ChapterID)
	}

	res := CompletionResult{ChapterID: chapter.ID, NewBadges: []models.Badge{}}

	txCtx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()
	err := s.DB.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		prof, err := ensureProfileTx(tx, userID)
		if err != nil {
			return err
		}
		res.OldTotalXP = prof.TotalXP

		if err := s.markCompletedTx(tx, userID, chapter.ID); err != nil {
			return err
		}

		award, err := s.awards.AwardTx(txCtx, tx, userID, models.ActionChapterComplete, chapter.XPReward, chapter.ID)
		if err != nil {
			return err
		}
		res.AppliedXP = chapter.XPReward
		res.TotalXP = award.NewTotalXP

		if in.QuizPerfect {
			bonus, err := s.awards.AwardTx(txCtx, tx, userID, models.ActionQuizPerfect, s.weights.QuizPerfect, chapter.ID)
			if err != nil {
				return err
			}
			res.QuizBonusApplied = bonus.Applied
			if bonus.Applied {
				res.AppliedXP += s.weights.QuizPerfect
			}
			res.TotalXP = bonus.NewTotalXP
		}

		t, err := s.detector.Detect(txCtx, tx, userID, res.OldTotalXP, res.TotalXP, chapter.ID)
		if err != nil {
			return err
		}
		res.BeltUp, res.LevelUp, res.NewBadges = t.BeltUp, t.LevelUp, t.NewBadges
		return nil
	})
	if err != nil {
		return CompletionResult{}, storeErr("complete chapter "+chapter.ID, err)
	}
	if s.heatmaps != nil {
		s.heatmaps.InvalidateHeatmap(userID)
	}

	s.log.Info("✅ chapter completed",
		"user_id", userID, "chapter", chapter.ID, "applied_xp", res.AppliedXP,
		"quiz_bonus", res.QuizBonusApplied, "total_xp", res.TotalXP, "new_badges", len(res.NewBadges))

	if postID, err := s.writeReview(ctx, userID, chapter, in); err != nil {
		s.log.Warn("review post failed", "user_id", userID, "chapter", chapter.ID, "error", err)
	} else {
		res.ReviewPostID = postID
	}

	s.dispatchSideEffects(userID, chapter, res)
	return res, nil
}

// markCompletedTx upserts the progress row to completed. An already completed row is left
// alone and reported as ErrChapterCompleted, which also serialises concurrent completions.
func (s *CompletionService) markCompletedTx(tx *gorm.DB, userID, chapterID string) error {
	now := s.now().UTC()
	row := models.Progress{
		UserID:      userID,
		ChapterID:   chapterID,
		Status:      models.ProgressCompleted,
		StartedAt:   &now,
		CompletedAt: &now,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "completed_at", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Neq{Column: clause.Column{Table: "progress", Name: "status"}, Value: models.ProgressCompleted},
		}},
	}).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("upsert progress: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrChapterCompleted
	}
	return nil
}

// writeReview creates the review post and upserts the chapter review pointing at it.
func (s *CompletionService) writeReview(ctx context.Context, userID string, chapter models.Chapter, in CompletionInput) (string, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var postID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.community.createReviewPostTx(tx, userID, chapter, in.ReviewText)
		if err != nil {
			return err
		}
		postID = post.ID
		review := models.ChapterReview{
			UserID:             userID,
			ChapterID:          chapter.ID,
			DifficultyRating:   in.DifficultyRating,
			SatisfactionRating: in.SatisfactionRating,
			PostID:             post.ID,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"difficulty_rating", "satisfaction_rating", "post_id", "updated_at"}),
		}).Create(&review).Error
	})
	return postID, err
}

func (s *CompletionService) dispatchSideEffects(userID string, chapter models.Chapter, res CompletionResult) {
	if s.dispatcher == nil {
		return
	}
	if s.streaks != nil {
		s.dispatcher.Submit("streak", func(ctx context.Context) error {
			_, err := s.streaks.Touch(ctx, userID)
			return err
		})
	}
	if s.notifier != nil {
		s.dispatcher.Submit("notify:completion", func(ctx context.Context) error {
			return s.notifyCompletion(ctx, userID, chapter, res)
		})
	}
	if s.announcer != nil {
		s.dispatcher.Submit("discord", func(ctx context.Context) error {
			return s.announcer.AnnounceCompletion(ctx, userID, chapter, res)
		})
	}
}

func (s *CompletionService) notifyCompletion(ctx context.Context, userID string, chapter models.Chapter, res CompletionResult) error {
	body := fmt.Sprintf("+%d XP for %s", res.AppliedXP, chapter.Title)
	if err := s.notifier.Notify(ctx, userID, models.NotificationChapterComplete, "Chapter complete", "📗", body); err != nil {
		return err
	}
	if res.BeltUp != nil {
		if err := s.notifier.Notify(ctx, userID, models.NotificationBeltUp, "New belt: "+res.BeltUp.To.Name, "🥋", ""); err != nil {
			return err
		}
	}
	if res.LevelUp != nil {
		title := fmt.Sprintf("Level %d reached", res.LevelUp.To)
		if err := s.notifier.Notify(ctx, userID, models.NotificationLevelUp, title, "⬆️", ""); err != nil {
			return err
		}
	}
	for _, b := range res.NewBadges {
		if err := s.notifier.Notify(ctx, userID, models.NotificationBadge, "Badge earned: "+b.Name, b.Icon, b.Description); err != nil {
			return err
		}
	}
	return nil
}

func validRating(r int) bool {
	return r >= 1 && r <= 5
}
