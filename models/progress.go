package models

import "time"

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// Progress is one row per (user, chapter). Status only moves forward to completed.
type Progress struct {
	UserID      string         `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	ChapterID   string         `gorm:"primaryKey;type:varchar(8)" json:"chapter_id"`
	Status      ProgressStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Progress) TableName() string {
	return "progress"
}

// ChapterReview links a completion to its community review post. One per (user, chapter).
type ChapterReview struct {
	UserID             string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	ChapterID          string    `gorm:"primaryKey;type:varchar(8)" json:"chapter_id"`
	DifficultyRating   int       `gorm:"not null" json:"difficulty_rating"`
	SatisfactionRating int       `gorm:"not null" json:"satisfaction_rating"`
	PostID             string    `gorm:"type:varchar(36)" json:"post_id"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
