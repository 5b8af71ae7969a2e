package models

import (
	"time"
)

// NotificationKind classifies an in-app notification.
type NotificationKind string

const (
	NotificationChapterComplete NotificationKind = "chapter_complete"
	NotificationBeltUp          NotificationKind = "belt_up"
	NotificationLevelUp         NotificationKind = "level_up"
	NotificationBadge           NotificationKind = "badge"
	NotificationAnswerAccepted  NotificationKind = "answer_accepted"
	NotificationLikeReceived    NotificationKind = "like_received"
)

// Notification is an in-app inbox entry.
type Notification struct {
	ID        string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string           `gorm:"type:varchar(64);not null;index:idx_notifications_user_created,priority:1" json:"user_id"`
	Kind      NotificationKind `gorm:"type:varchar(32);not null" json:"kind"`
	Title     string           `gorm:"not null" json:"title"`
	Emoji     string           `gorm:"size:16" json:"emoji"`
	Body      string           `gorm:"type:text" json:"body"`
	Viewed    bool             `gorm:"default:false;index" json:"viewed"`
	CreatedAt time.Time        `gorm:"index:idx_notifications_user_created,priority:2" json:"created_at"`
}
