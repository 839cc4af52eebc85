package models

import "time"

// BadgeUnlock records that a user reached a streak milestone. At most one per user and badge type.
type BadgeUnlock struct {
	ID          uint      `gorm:"primaryKey" json:"-" bson:"-"`
	UserID      string    `gorm:"size:64;not null;uniqueIndex:idx_badges_user_type,priority:1" json:"-" bson:"userId"`
	BadgeType   string    `gorm:"size:32;not null;uniqueIndex:idx_badges_user_type,priority:2" json:"badge_type" bson:"badgeType"`
	BadgeName   string    `gorm:"size:64" json:"badge_name" bson:"badgeName"`
	Days        int       `json:"days" bson:"days"`
	Icon        string    `gorm:"size:16" json:"icon" bson:"icon"`
	Description string    `gorm:"size:255" json:"description" bson:"description"`
	UnlockedAt  time.Time `gorm:"index" json:"unlocked_at" bson:"unlockedAt"`
}

// TableName pins the table name for every dialect.
func (BadgeUnlock) TableName() string {
	return "badge_unlocks"
}
