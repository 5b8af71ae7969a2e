package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vibedojo-ledger/models"
)

type ProgressService struct {
	DB         *gorm.DB
	curriculum *Curriculum
	timeout    time.Duration
	now        func() time.Time
}

func NewProgressService(db *gorm.DB, curriculum *Curriculum, timeout time.Duration) *ProgressService {
	return &ProgressService{DB: db, curriculum: curriculum, timeout: timeout, now: time.Now}
}

// StartChapter marks a chapter in_progress. Completed chapters are left as they are.
func (s *ProgressService) StartChapter(ctx context.Context, userID, chapterID string) (*models.Progress, error) {
	if _, ok := s.curriculum.Chapter(chapterID); !ok {
		return nil, fmt.Errorf("%w: %q", ErrChapterNotFound, chapterID)
	}
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()
	row := models.Progress{UserID: userID, ChapterID: chapterID, Status: models.ProgressInProgress, StartedAt: &now}
	db := s.DB.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return nil, storeErr("start chapter", err)
	}

	var cur models.Progress
	if err := db.Where("user_id = ? AND chapter_id = ?", userID, chapterID).First(&cur).Error; err != nil {
		return nil, storeErr("start chapter", err)
	}
	return &cur, nil
}

// ListProgress returns the user's progress rows ordered by chapter.
func (s *ProgressService) ListProgress(ctx context.Context, userID string) ([]models.Progress, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var rows []models.Progress
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("chapter_id ASC").
		Find(&rows).Error; err != nil {
		return nil, storeErr("list progress", err)
	}
	return rows, nil
}

// Status returns a chapter's status for the user, not_started when no row exists.
func (s *ProgressService) Status(ctx context.Context, userID, chapterID string) (models.ProgressStatus, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var rows []models.Progress
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND chapter_id = ?", userID, chapterID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return "", storeErr("progress status", err)
	}
	if len(rows) == 0 {
		return models.ProgressNotStarted, nil
	}
	return rows[0].Status, nil
}
