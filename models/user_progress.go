package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile is the per-user progression aggregate. Belt and level are derived from TotalXP
// and never stored.
type Profile struct {
	UserID string `gorm:"primaryKey;type:varchar(64)" json:"user_id"` // auth provider's user id

	// Core progression
	TotalXP int64 `json:"total_xp" gorm:"not null;default:0"`

	// Streak, evaluated on the fixed UTC+9 calendar. LastActivityDate is "YYYY-MM-DD".
	CurrentStreak    int     `json:"current_streak" gorm:"not null;default:0"`
	LongestStreak    int     `json:"longest_streak" gorm:"not null;default:0"`
	LastActivityDate *string `json:"last_activity_date,omitempty" gorm:"type:varchar(10)"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
