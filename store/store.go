// Package store persists the check-in ledger and its companion records.
// Every backend enforces the (user, date), (user, badge type) and (user, tier)
// natural keys with unique indexes and reports a conflict as ErrDuplicate.
package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/quitmate/models"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when an insert violates a natural-key unique index.
	ErrDuplicate = errors.New("store: duplicate record")
	// ErrNoCredit is returned when a make-up credit cannot be reserved.
	ErrNoCredit = errors.New("store: no make-up credit left")
	// ErrUnknownKind is returned for a counter kind the store does not track.
	ErrUnknownKind = errors.New("store: unknown counter kind")
)

// ProfileUpdate carries the optional profile fields of an update. Nil fields are left untouched.
type ProfileUpdate struct {
	NickName          *string
	AvatarURL         *string
	DailyCigarettes   *int
	CigarettePrice    *float64
	CigarettesPerPack *int
	Settings          *models.ProfileSettings
}

// Empty reports whether the update carries no field at all.
func (u ProfileUpdate) Empty() bool {
	return u.NickName == nil && u.AvatarURL == nil && u.DailyCigarettes == nil &&
		u.CigarettePrice == nil && u.CigarettesPerPack == nil && u.Settings == nil
}

// Store is the persistence contract shared by the relational and document backends.
type Store interface {
	GetOrCreateProfile(ctx context.Context, defaults *models.UserProfile) (*models.UserProfile, bool, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.UserProfile, error)
	SetQuitDate(ctx context.Context, userID, date string) (*models.UserProfile, error)
	// ReserveMakeUpCredit atomically consumes one credit of month, resetting the
	// counter first when the stored month differs. It returns the credits used after
	// the reservation, or ErrNoCredit when quota is already reached.
	ReserveMakeUpCredit(ctx context.Context, userID, month string, quota int) (int, error)
	RefundMakeUpCredit(ctx context.Context, userID, month string) error

	GetCheckin(ctx context.Context, userID, date string) (*models.CheckinRecord, error)
	InsertCheckin(ctx context.Context, rec *models.CheckinRecord) error
	CountCheckins(ctx context.Context, userID string) (int, error)
	CountCheckinsBefore(ctx context.Context, userID, date string) (int, error)
	ListCheckins(ctx context.Context, userID, from, to string) ([]models.CheckinRecord, error)
	LatestForwardCheckin(ctx context.Context, userID string) (*models.CheckinRecord, error)

	HasBadge(ctx context.Context, userID, badgeType string) (bool, error)
	InsertBadge(ctx context.Context, badge *models.BadgeUnlock) error
	ListBadges(ctx context.Context, userID string) ([]models.BadgeUnlock, error)
	CountBadges(ctx context.Context, userID string) (int, error)

	GetCertificate(ctx context.Context, userID, tier string) (*models.CertificateRecord, error)
	InsertCertificate(ctx context.Context, cert *models.CertificateRecord) error
	ListCertificates(ctx context.Context, userID string) ([]models.CertificateRecord, error)

	IncrementCigarette(ctx context.Context, userID, date, kind string, n int) (*models.CigaretteDay, error)
	GetCigaretteDay(ctx context.Context, userID, date string) (*models.CigaretteDay, error)
	SumCigarettes(ctx context.Context, userID string) (models.CigaretteCounts, error)
	IncrementShare(ctx context.Context, userID, date, shareType string) (*models.ShareDay, error)
	SumShares(ctx context.Context, userID string) (int, error)
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
