package models

import "time"

// CertificateRecord is issued once per user and tier.
type CertificateRecord struct {
	ID        uint      `gorm:"primaryKey" json:"-" bson:"-"`
	Serial    string    `gorm:"size:36;not null;uniqueIndex" json:"serial" bson:"serial"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_certificates_user_tier,priority:1" json:"-" bson:"userId"`
	Tier      string    `gorm:"size:32;not null;uniqueIndex:idx_certificates_user_tier,priority:2" json:"tier" bson:"tier"`
	QuitDays  int       `json:"quit_days" bson:"quitDays"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
}

// TableName pins the table name for every dialect.
func (CertificateRecord) TableName() string {
	return "certificates"
}
