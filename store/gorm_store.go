package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/quitmate/models"
)

var cigaretteColumns = map[string]string{
	models.PuffKindPuff:  "puff_count",
	models.PuffKindShake: "shake_count",
	models.PuffKindNew:   "new_count",
}

// GormStore implements Store on a relational database (MySQL, PostgreSQL, SQLite).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an opened and migrated gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicate(err):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *GormStore) GetOrCreateProfile(ctx context.Context, defaults *models.UserProfile) (*models.UserProfile, bool, error) {
	existing, err := s.GetProfile(ctx, defaults.UserID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	profile := *defaults
	if err := translate(s.db.WithContext(ctx).Create(&profile).Error); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Lost a race with a concurrent login.
			existing, err := s.GetProfile(ctx, defaults.UserID)
			return existing, false, err
		}
		return nil, false, err
	}
	return &profile, true, nil
}

func (s *GormStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (s *GormStore) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.UserProfile, error) {
	updates := map[string]interface{}{}
	if update.NickName != nil {
		updates["nick_name"] = *update.NickName
	}
	if update.AvatarURL != nil {
		updates["avatar_url"] = *update.AvatarURL
	}
	if update.DailyCigarettes != nil {
		updates["daily_cigarettes"] = *update.DailyCigarettes
	}
	if update.CigarettePrice != nil {
		updates["cigarette_price"] = *update.CigarettePrice
	}
	if update.CigarettesPerPack != nil {
		updates["cigarettes_per_pack"] = *update.CigarettesPerPack
	}
	if st := update.Settings; st != nil {
		updates["setting_notify_checkin"] = st.NotifyCheckin
		updates["setting_notify_surprise"] = st.NotifySurprise
		updates["setting_notify_article"] = st.NotifyArticle
		updates["setting_custom_refuse_text"] = st.CustomRefuseText
		updates["setting_show_in_rank"] = st.ShowInRank
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		err := s.db.WithContext(ctx).Model(&models.UserProfile{}).Where("user_id = ?", userID).Updates(updates).Error
		if err != nil {
			return nil, translate(err)
		}
	}
	return s.GetProfile(ctx, userID)
}

func (s *GormStore) SetQuitDate(ctx context.Context, userID, date string) (*models.UserProfile, error) {
	err := s.db.WithContext(ctx).Model(&models.UserProfile{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{"quit_date": date, "updated_at": time.Now()}).Error
	if err != nil {
		return nil, translate(err)
	}
	return s.GetProfile(ctx, userID)
}

func (s *GormStore) ReserveMakeUpCredit(ctx context.Context, userID, month string, quota int) (int, error) {
	if quota <= 0 {
		return 0, ErrNoCredit
	}
	// The CASE must be the first assignment: MySQL evaluates SET left to right.
	res := s.db.WithContext(ctx).Exec(
		`UPDATE user_profiles
		 SET make_up_credits_used = CASE WHEN last_reset_month = ? THEN make_up_credits_used + 1 ELSE 1 END,
		     last_reset_month = ?,
		     updated_at = ?
		 WHERE user_id = ? AND (last_reset_month <> ? OR make_up_credits_used < ?)`,
		month, month, time.Now(), userID, month, quota,
	)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetProfile(ctx, userID); err != nil {
			return 0, err
		}
		return 0, ErrNoCredit
	}
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return 0, err
	}
	return profile.MakeUpCreditsUsed, nil
}

func (s *GormStore) RefundMakeUpCredit(ctx context.Context, userID, month string) error {
	err := s.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("user_id = ? AND last_reset_month = ? AND make_up_credits_used > 0", userID, month).
		Update("make_up_credits_used", gorm.Expr("make_up_credits_used - 1")).Error
	return translate(err)
}

func (s *GormStore) GetCheckin(ctx context.Context, userID, date string) (*models.CheckinRecord, error) {
	var rec models.CheckinRecord
	if err := s.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (s *GormStore) InsertCheckin(ctx context.Context, rec *models.CheckinRecord) error {
	return translate(s.db.WithContext(ctx).Create(rec).Error)
}

func (s *GormStore) CountCheckins(ctx context.Context, userID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.CheckinRecord{}).Where("user_id = ?", userID).Count(&n).Error
	return int(n), translate(err)
}

func (s *GormStore) CountCheckinsBefore(ctx context.Context, userID, date string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.CheckinRecord{}).
		Where("user_id = ? AND date < ?", userID, date).Count(&n).Error
	return int(n), translate(err)
}

func (s *GormStore) ListCheckins(ctx context.Context, userID, from, to string) ([]models.CheckinRecord, error) {
	var recs []models.CheckinRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC").Find(&recs).Error
	return recs, translate(err)
}

func (s *GormStore) LatestForwardCheckin(ctx context.Context, userID string) (*models.CheckinRecord, error) {
	var rec models.CheckinRecord
	err := s.db.WithContext(ctx).Where("user_id = ? AND is_make_up = ?", userID, false).
		Order("date DESC").First(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (s *GormStore) HasBadge(ctx context.Context, userID, badgeType string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.BadgeUnlock{}).
		Where("user_id = ? AND badge_type = ?", userID, badgeType).Count(&n).Error
	return n > 0, translate(err)
}

func (s *GormStore) InsertBadge(ctx context.Context, badge *models.BadgeUnlock) error {
	return translate(s.db.WithContext(ctx).Create(badge).Error)
}

func (s *GormStore) ListBadges(ctx context.Context, userID string) ([]models.BadgeUnlock, error) {
	var badges []models.BadgeUnlock
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("unlocked_at DESC").Order("days DESC").Find(&badges).Error
	return badges, translate(err)
}

func (s *GormStore) CountBadges(ctx context.Context, userID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.BadgeUnlock{}).Where("user_id = ?", userID).Count(&n).Error
	return int(n), translate(err)
}

func (s *GormStore) GetCertificate(ctx context.Context, userID, tier string) (*models.CertificateRecord, error) {
	var cert models.CertificateRecord
	if err := s.db.WithContext(ctx).Where("user_id = ? AND tier = ?", userID, tier).First(&cert).Error; err != nil {
		return nil, translate(err)
	}
	return &cert, nil
}

func (s *GormStore) InsertCertificate(ctx context.Context, cert *models.CertificateRecord) error {
	return translate(s.db.WithContext(ctx).Create(cert).Error)
}

func (s *GormStore) ListCertificates(ctx context.Context, userID string) ([]models.CertificateRecord, error) {
	var certs []models.CertificateRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("quit_days DESC").Find(&certs).Error
	return certs, translate(err)
}

// IncrementCigarette upserts the (user, date) row in one statement so concurrent
// first actions of the day cannot collide.
func (s *GormStore) IncrementCigarette(ctx context.Context, userID, date, kind string, n int) (*models.CigaretteDay, error) {
	column, ok := cigaretteColumns[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	day := models.CigaretteDay{UserID: userID, Date: date}
	switch kind {
	case models.PuffKindPuff:
		day.PuffCount = n
	case models.PuffKindShake:
		day.ShakeCount = n
	case models.PuffKindNew:
		day.NewCount = n
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:       gorm.Expr("cigarette_days."+column+" + ?", n),
			"updated_at": time.Now(),
		}),
	}).Create(&day).Error
	if err != nil {
		return nil, translate(err)
	}
	return s.GetCigaretteDay(ctx, userID, date)
}

func (s *GormStore) GetCigaretteDay(ctx context.Context, userID, date string) (*models.CigaretteDay, error) {
	var day models.CigaretteDay
	if err := s.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&day).Error; err != nil {
		return nil, translate(err)
	}
	return &day, nil
}

func (s *GormStore) SumCigarettes(ctx context.Context, userID string) (models.CigaretteCounts, error) {
	var counts models.CigaretteCounts
	err := s.db.WithContext(ctx).Model(&models.CigaretteDay{}).
		Select("COALESCE(SUM(puff_count), 0) AS puff_count, COALESCE(SUM(shake_count), 0) AS shake_count, COALESCE(SUM(new_count), 0) AS new_count").
		Where("user_id = ?", userID).
		Scan(&counts).Error
	return counts, translate(err)
}

func (s *GormStore) IncrementShare(ctx context.Context, userID, date, shareType string) (*models.ShareDay, error) {
	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"share_count": gorm.Expr("share_days.share_count + 1"),
			"share_type":  shareType,
			"updated_at":  time.Now(),
		}),
	}).Create(&models.ShareDay{UserID: userID, Date: date, ShareType: shareType, ShareCount: 1}).Error
	if err != nil {
		return nil, translate(err)
	}
	var out models.ShareDay
	if err := db.Where("user_id = ? AND date = ?", userID, date).First(&out).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (s *GormStore) SumShares(ctx context.Context, userID string) (int, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.ShareDay{}).
		Select("COALESCE(SUM(share_count), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	return int(total), translate(err)
}

var _ Store = (*GormStore)(nil)
