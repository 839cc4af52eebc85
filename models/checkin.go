package models

import "time"

// CheckinRecord is one check-in per user per calendar date. Rows are never updated or deleted.
type CheckinRecord struct {
	ID            uint      `gorm:"primaryKey" json:"-" bson:"-"`
	UserID        string    `gorm:"size:64;not null;uniqueIndex:idx_checkins_user_date,priority:1" json:"-" bson:"userId"`
	Date          string    `gorm:"size:10;not null;uniqueIndex:idx_checkins_user_date,priority:2" json:"date" bson:"date"`
	Timestamp     time.Time `gorm:"not null" json:"timestamp" bson:"timestamp"`
	IsMakeUp      bool      `gorm:"not null" json:"is_make_up" bson:"isMakeUp"`
	StreakAtWrite int       `gorm:"not null" json:"streak" bson:"streakAtWrite"`
	TotalAtWrite  int       `gorm:"not null" json:"total" bson:"totalAtWrite"`
	CreatedAt     time.Time `json:"created_at" bson:"createdAt"`
}

// TableName pins the table name for every dialect.
func (CheckinRecord) TableName() string {
	return "checkins"
}
