package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	ErrInvalidAction    = errors.New("invalid xp action")
	ErrInvalidAmount    = errors.New("xp amount must be positive")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidRating    = errors.New("ratings must be between 1 and 5")
	ErrChapterNotFound  = errors.New("chapter not found")
	ErrChapterCompleted = errors.New("chapter already completed")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrStoreTimeout     = errors.New("ledger store timed out")
)

// DefaultStoreTimeout bounds a single ledger call when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

func withStoreTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, d)
}

// storeErr wraps a store failure with the operation name. Deadline overruns become
// ErrStoreTimeout and missing rows become ErrNotFound.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStoreTimeout), errors.Is(err, ErrNotFound):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, ErrStoreTimeout)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
