package models

import (
	"time"
)

// BadgeRule names the completion-count predicate a badge is checked against.
type BadgeRule string

const (
	BadgeRuleFirstChapter   BadgeRule = "first_chapter"   // completed count == 1
	BadgeRulePartComplete   BadgeRule = "part_complete"   // every chapter of Part completed
	BadgeRuleFullCurriculum BadgeRule = "full_curriculum" // final chapter just completed and all chapters done
)

// Badge: static catalog entry, seeded into the badges table at startup.
type Badge struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"` // e.g. "first-chapter", "web3-pioneer"
	Name        string    `gorm:"not null" json:"name"`
	Icon        string    `gorm:"type:varchar(16)" json:"icon"`
	Description string    `json:"description"`
	Rarity      string    `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	Rule        BadgeRule `gorm:"type:varchar(32);not null" json:"rule"`
	Part        int       `gorm:"default:0" json:"part,omitempty"` // only for BadgeRulePartComplete
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
}

// UserBadge: awarded instance, at most one per (user, badge).
type UserBadge struct {
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	BadgeID   string    `gorm:"primaryKey;type:varchar(64)" json:"badge_id"`
	AwardedAt time.Time `gorm:"not null" json:"awarded_at"`

	Badge Badge `gorm:"foreignKey:BadgeID" json:"badge"`
}

// BadgeCatalog is the fixed set of badges.
var BadgeCatalog = []Badge{
	{
		ID:          "first-chapter",
		Name:        "First Steps",
		Icon:        "🥋",
		Description: "Completed your first chapter",
		Rarity:      "common",
		Rule:        BadgeRuleFirstChapter,
	},
	{
		ID:          "part-1-complete",
		Name:        "Foundations",
		Icon:        "📘",
		Description: "Completed every chapter of Part 1",
		Rarity:      "rare",
		Rule:        BadgeRulePartComplete,
		Part:        1,
	},
	{
		ID:          "part-2-complete",
		Name:        "Builder",
		Icon:        "🛠️",
		Description: "Completed every chapter of Part 2",
		Rarity:      "rare",
		Rule:        BadgeRulePartComplete,
		Part:        2,
	},
	{
		ID:          "web3-pioneer",
		Name:        "Web3 Pioneer",
		Icon:        "⛓️",
		Description: "Completed every chapter of the Web3 part",
		Rarity:      "epic",
		Rule:        BadgeRulePartComplete,
		Part:        3,
	},
	{
		ID:          "full-curriculum",
		Name:        "Grandmaster",
		Icon:        "🏆",
		Description: "Completed the whole curriculum",
		Rarity:      "legendary",
		Rule:        BadgeRuleFullCurriculum,
	},
}
