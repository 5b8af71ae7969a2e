package models

import (
	"time"
)

// XPAction identifies what earned an XP log entry.
type XPAction string

const (
	ActionChapterComplete XPAction = "chapter_complete"
	ActionQuizPerfect     XPAction = "quiz_perfect"
	ActionCommentCreated  XPAction = "comment_created"
	ActionPostCreated     XPAction = "post_created"
	ActionShowcaseCreated XPAction = "showcase_created"
	ActionLikeReceived    XPAction = "like_received"
	ActionAnswerAccepted  XPAction = "answer_accepted"
)

var AllXPActions = []XPAction{
	ActionChapterComplete,
	ActionQuizPerfect,
	ActionCommentCreated,
	ActionPostCreated,
	ActionShowcaseCreated,
	ActionLikeReceived,
	ActionAnswerAccepted,
}

// Valid reports whether a is a known action.
func (a XPAction) Valid() bool {
	for _, known := range AllXPActions {
		if a == known {
			return true
		}
	}
	return false
}

// Deduplicated reports whether at most one live entry may exist per (user, action, reference).
func (a XPAction) Deduplicated() bool {
	return a == ActionQuizPerfect || a == ActionAnswerAccepted
}

// XPLog is an append-only ledger row. Rows are never updated; an answer_accepted reversal
// deletes the row.
type XPLog struct {
	ID          string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string   `gorm:"type:varchar(64);not null;index:idx_xp_logs_user_created,priority:1;uniqueIndex:idx_xp_logs_dedup,priority:1" json:"user_id"`
	Action      XPAction `gorm:"type:varchar(32);not null;index" json:"action"`
	Amount      int64    `gorm:"not null" json:"amount"`
	ReferenceID *string  `gorm:"type:varchar(64);index" json:"reference_id,omitempty"`

	// DedupKey is "<action>:<reference>" for deduplicated actions and NULL otherwise, so the
	// unique index only constrains one-time bonuses.
	DedupKey *string `gorm:"type:varchar(128);uniqueIndex:idx_xp_logs_dedup,priority:2" json:"-"`

	CreatedAt time.Time `gorm:"not null;index:idx_xp_logs_user_created,priority:2" json:"created_at"`
}

// DedupKeyFor returns the idempotency key for a deduplicated action, or nil.
func DedupKeyFor(action XPAction, referenceID string) *string {
	if !action.Deduplicated() {
		return nil
	}
	key := string(action) + ":" + referenceID
	return &key
}
