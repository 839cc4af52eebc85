package models

import (
	"time"

	"gorm.io/gorm"
)

// ProfileSettings are the client-side preferences stored with the profile.
type ProfileSettings struct {
	NotifyCheckin    bool   `json:"notify_checkin" bson:"notifyCheckin"`
	NotifySurprise   bool   `json:"notify_surprise" bson:"notifySurprise"`
	NotifyArticle    bool   `json:"notify_article" bson:"notifyArticle"`
	CustomRefuseText string `gorm:"size:255" json:"custom_refuse_text" bson:"customRefuseText"`
	ShowInRank       bool   `json:"show_in_rank" bson:"showInRank"`
}

// UserProfile is created on first login and keyed by the opaque identity of the caller.
type UserProfile struct {
	ID                uint            `gorm:"primaryKey" json:"-" bson:"-"`
	UserID            string          `gorm:"size:64;not null;uniqueIndex" json:"user_id" bson:"userId"`
	NickName          string          `gorm:"size:64" json:"nick_name" bson:"nickName"`
	AvatarURL         string          `gorm:"size:512" json:"avatar_url" bson:"avatarUrl"`
	QuitDate          string          `gorm:"size:10" json:"quit_date" bson:"quitDate"`
	DailyCigarettes   int             `json:"daily_cigarettes" bson:"dailyCigarettes"`
	CigarettePrice    float64         `json:"cigarette_price" bson:"cigarettePrice"`
	CigarettesPerPack int             `json:"cigarettes_per_pack" bson:"cigarettesPerPack"`
	MakeUpCreditsUsed int             `gorm:"not null" json:"make_up_credits_used" bson:"makeUpCreditsUsed"`
	LastResetMonth    string          `gorm:"size:7" json:"last_reset_month" bson:"lastResetMonth"`
	Settings          ProfileSettings `gorm:"embedded;embeddedPrefix:setting_" json:"settings" bson:"settings"`
	CreatedAt         time.Time       `json:"created_at" bson:"createdAt"`
	UpdatedAt         time.Time       `json:"updated_at" bson:"updatedAt"`
}

// TableName pins the table name for every dialect.
func (UserProfile) TableName() string {
	return "user_profiles"
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *UserProfile) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}
