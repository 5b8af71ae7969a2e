package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
)

// XPWeights are the fixed amounts for community and bonus actions. Chapter rewards come
// from the curriculum.
type XPWeights struct {
	QuizPerfect     int64
	AnswerAccepted  int64
	PostCreated     int64
	CommentCreated  int64
	ShowcaseCreated int64
	LikeReceived    int64
}

var DefaultXPWeights = XPWeights{
	QuizPerfect:     20,
	AnswerAccepted:  10,
	PostCreated:     10,
	CommentCreated:  5,
	ShowcaseCreated: 30,
	LikeReceived:    2,
}

// AwardResult reports whether a log entry was written and the aggregate afterwards.
type AwardResult struct {
	Applied    bool  `json:"applied"`
	NewTotalXP int64 `json:"new_total_xp"`
}

// AwardEngine is the single entry point for every XP mutation.
type AwardEngine struct {
	DB      *gorm.DB
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewAwardEngine(db *gorm.DB, log *logger.Logger, timeout time.Duration) *AwardEngine {
	return &AwardEngine{
		DB:      db,
		log:     log.With("service", "AwardEngine"),
		timeout: timeout,
		now:     time.Now,
	}
}

// Award writes one XP log entry and bumps the profile total in a single transaction.
// Deduplicated actions (quiz_perfect, answer_accepted) are applied at most once per
// (user, action, reference); a repeat returns Applied=false and the unchanged total.
func (e *AwardEngine) Award(ctx context.Context, userID string, action models.XPAction, amount int64, referenceID string) (AwardResult, error) {
	ctx, cancel := withStoreTimeout(ctx, e.timeout)
	defer cancel()

	var res AwardResult
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = e.AwardTx(ctx, tx, userID, action, amount, referenceID)
		return err
	})
	if err != nil {
		return AwardResult{}, storeErr("award "+string(action), err)
	}
	return res, nil
}

// AwardTx is Award inside a caller-owned transaction. A nil tx runs against the engine's DB
// without a transaction.
func (e *AwardEngine) AwardTx(ctx context.Context, tx *gorm.DB, userID string, action models.XPAction, amount int64, referenceID string) (AwardResult, error) {
	if tx == nil {
		tx = e.DB
	}
	tx = tx.WithContext(ctx)

	if !action.Valid() {
		return AwardResult{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if amount <= 0 {
		return AwardResult{}, ErrInvalidAmount
	}
	if action.Deduplicated() && referenceID == "" {
		return AwardResult{}, fmt.Errorf("%w: %s requires a reference id", ErrInvalidInput, action)
	}
	if _, err := ensureProfileTx(tx, userID); err != nil {
		return AwardResult{}, err
	}

	entry := models.XPLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Amount:    amount,
		DedupKey:  models.DedupKeyFor(action, referenceID),
		CreatedAt: e.now().UTC(),
	}
	if referenceID != "" {
		entry.ReferenceID = &referenceID
	}

	insert := tx
	if entry.DedupKey != nil {
		insert = tx.Clauses(clause.OnConflict{DoNothing: true})
	}
	created := insert.Create(&entry)
	if created.Error != nil {
		return AwardResult{}, fmt.Errorf("insert xp log: %w", created.Error)
	}
	if created.RowsAffected == 0 {
		total, err := readTotalXP(tx, userID)
		if err != nil {
			return AwardResult{}, err
		}
		e.log.Debug("duplicate award skipped", "user_id", userID, "action", action, "reference_id", referenceID)
		return AwardResult{Applied: false, NewTotalXP: total}, nil
	}

	if err := tx.Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("total_xp", gorm.Expr("total_xp + ?", amount)).Error; err != nil {
		return AwardResult{}, fmt.Errorf("increment total_xp: %w", err)
	}
	total, err := readTotalXP(tx, userID)
	if err != nil {
		return AwardResult{}, err
	}

	e.log.Info("🎮 xp awarded", "user_id", userID, "action", action, "amount", amount, "reference_id", referenceID, "total_xp", total)
	return AwardResult{Applied: true, NewTotalXP: total}, nil
}

// RevokeAnswerAccepted deletes every answer_accepted entry for (user, reply) and refunds
// their sum. Applied is false when nothing was there to revoke.
func (e *AwardEngine) RevokeAnswerAccepted(ctx context.Context, replyID, userID string) (AwardResult, error) {
	ctx, cancel := withStoreTimeout(ctx, e.timeout)
	defer cancel()

	var res AwardResult
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = e.RevokeAnswerAcceptedTx(ctx, tx, replyID, userID)
		return err
	})
	if err != nil {
		return AwardResult{}, storeErr("revoke answer_accepted", err)
	}
	return res, nil
}

func (e *AwardEngine) RevokeAnswerAcceptedTx(ctx context.Context, tx *gorm.DB, replyID, userID string) (AwardResult, error) {
	if tx == nil {
		tx = e.DB
	}
	tx = tx.WithContext(ctx)

	var entries []models.XPLog
	if err := tx.Where("user_id = ? AND action = ? AND reference_id = ?", userID, models.ActionAnswerAccepted, replyID).
		Find(&entries).Error; err != nil {
		return AwardResult{}, fmt.Errorf("find answer_accepted entries: %w", err)
	}
	if len(entries) == 0 {
		total, err := readTotalXP(tx, userID)
		if err != nil {
			return AwardResult{}, err
		}
		return AwardResult{Applied: false, NewTotalXP: total}, nil
	}

	ids := make([]string, 0, len(entries))
	var refund int64
	for _, en := range entries {
		ids = append(ids, en.ID)
		refund += en.Amount
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.XPLog{}).Error; err != nil {
		return AwardResult{}, fmt.Errorf("delete answer_accepted entries: %w", err)
	}
	if err := tx.Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("total_xp", gorm.Expr("total_xp - ?", refund)).Error; err != nil {
		return AwardResult{}, fmt.Errorf("decrement total_xp: %w", err)
	}
	total, err := readTotalXP(tx, userID)
	if err != nil {
		return AwardResult{}, err
	}

	e.log.Info("↩️ answer_accepted revoked", "user_id", userID, "reference_id", replyID, "refund", refund, "entries", len(entries), "total_xp", total)
	return AwardResult{Applied: true, NewTotalXP: total}, nil
}

// CountLogs counts ledger rows for an action, optionally narrowed to a reference id.
func (e *AwardEngine) CountLogs(ctx context.Context, userID string, action models.XPAction, referenceID string) (int64, error) {
	ctx, cancel := withStoreTimeout(ctx, e.timeout)
	defer cancel()

	q := e.DB.WithContext(ctx).Model(&models.XPLog{}).Where("user_id = ? AND action = ?", userID, action)
	if referenceID != "" {
		q = q.Where("reference_id = ?", referenceID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, storeErr("count xp logs", err)
	}
	return count, nil
}
