package models

import (
	"time"
)

type PostType string

const (
	PostTypeGeneral  PostType = "general"
	PostTypeQuestion PostType = "question"
	PostTypeShowcase PostType = "showcase"
	PostTypeReview   PostType = "review"
)

func (t PostType) Valid() bool {
	switch t {
	case PostTypeGeneral, PostTypeQuestion, PostTypeShowcase, PostTypeReview:
		return true
	}
	return false
}

type Post struct {
	ID        string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorID  string   `gorm:"type:varchar(64);not null;index" json:"author_id"`
	Type      PostType `gorm:"type:varchar(16);not null;index" json:"type"`
	Title     string   `gorm:"not null" json:"title"`
	Slug      string   `gorm:"type:varchar(160);index" json:"slug"`
	Body      string   `gorm:"type:text" json:"body"`
	ChapterID *string  `gorm:"type:varchar(8);index" json:"chapter_id,omitempty"`

	// Set on question posts once the author accepts a reply.
	AcceptedCommentID *string `gorm:"type:varchar(36)" json:"accepted_comment_id,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Comment is also a reply when it sits under a question post.
type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"type:varchar(36);not null;index" json:"post_id"`
	AuthorID  string    `gorm:"type:varchar(64);not null;index" json:"author_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// PostLike allows one like per (post, user).
type PostLike struct {
	PostID    string    `gorm:"primaryKey;type:varchar(36)" json:"post_id"`
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
