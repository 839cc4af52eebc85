package models

import "time"

// CigaretteDay holds the virtual cigarette counters of one user for one calendar date.
type CigaretteDay struct {
	ID         uint      `gorm:"primaryKey" json:"-" bson:"-"`
	UserID     string    `gorm:"size:64;not null;uniqueIndex:idx_cigarette_days_user_date,priority:1" json:"-" bson:"userId"`
	Date       string    `gorm:"size:10;not null;uniqueIndex:idx_cigarette_days_user_date,priority:2" json:"date" bson:"date"`
	PuffCount  int       `gorm:"not null" json:"puff_count" bson:"puffCount"`
	ShakeCount int       `gorm:"not null" json:"shake_count" bson:"shakeCount"`
	NewCount   int       `gorm:"not null" json:"new_count" bson:"newCount"`
	CreatedAt  time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updatedAt"`
}

// TableName pins the table name for every dialect.
func (CigaretteDay) TableName() string {
	return "cigarette_days"
}

// ShareDay counts shares of one user for one calendar date.
type ShareDay struct {
	ID         uint      `gorm:"primaryKey" json:"-" bson:"-"`
	UserID     string    `gorm:"size:64;not null;uniqueIndex:idx_share_days_user_date,priority:1" json:"-" bson:"userId"`
	Date       string    `gorm:"size:10;not null;uniqueIndex:idx_share_days_user_date,priority:2" json:"date" bson:"date"`
	ShareType  string    `gorm:"size:32" json:"share_type" bson:"shareType"`
	ShareCount int       `gorm:"not null" json:"share_count" bson:"shareCount"`
	CreatedAt  time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updatedAt"`
}

// TableName pins the table name for every dialect.
func (ShareDay) TableName() string {
	return "share_days"
}

// CigaretteCounts is the sum of the three virtual cigarette actions.
type CigaretteCounts struct {
	PuffCount  int `json:"puff_count" bson:"puffCount"`
	ShakeCount int `json:"shake_count" bson:"shakeCount"`
	NewCount   int `json:"new_count" bson:"newCount"`
}

// All returns all models that live in the relational store.
func All() []interface{} {
	return []interface{}{
		&UserProfile{},
		&CheckinRecord{},
		&BadgeUnlock{},
		&CertificateRecord{},
		&CigaretteDay{},
		&ShareDay{},
	}
}

// Virtual cigarette actions accepted by recordPuff.
const (
	PuffKindPuff  = "puff"
	PuffKindShake = "shake"
	PuffKindNew   = "new"
)

// ValidPuffKind reports whether kind is one of the recognised cigarette actions.
func ValidPuffKind(kind string) bool {
	switch kind {
	case PuffKindPuff, PuffKindShake, PuffKindNew:
		return true
	}
	return false
}
