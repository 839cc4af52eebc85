package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cppla/quitmate/models"
	"github.com/cppla/quitmate/store"
	"github.com/cppla/quitmate/utils"
)

const (
	maxNickNameLen   = 64
	maxAvatarURLLen  = 512
	maxRefuseTextLen = 255
)

// DefaultProfile returns the profile a user starts with on first login.
func DefaultProfile(userID string) *models.UserProfile {
	return &models.UserProfile{
		UserID:            userID,
		DailyCigarettes:   20,
		CigarettePrice:    15,
		CigarettesPerPack: 20,
		Settings: models.ProfileSettings{
			NotifyCheckin:    true,
			NotifySurprise:   true,
			NotifyArticle:    false,
			CustomRefuseText: "戒烟中,请勿劝烟!",
			ShowInRank:       true,
		},
	}
}

// ProfileInput carries the optional fields of an updateUserInfo call.
type ProfileInput struct {
	NickName          *string                 `json:"nick_name"`
	AvatarURL         *string                 `json:"avatar_url"`
	DailyCigarettes   *int                    `json:"daily_cigarettes"`
	CigarettesPerPack *int                    `json:"cigarettes_per_pack"`
	CigarettePrice    *float64                `json:"cigarette_price"`
	Settings          *models.ProfileSettings `json:"settings"`
}

// ProfileService manages the user profile and quit date.
type ProfileService struct {
	store store.Store
	cal   *Calendar
	cache Cache
}

// NewProfileService builds a ProfileService. cache may be nil.
func NewProfileService(st store.Store, cal *Calendar, cache Cache) *ProfileService {
	return &ProfileService{store: st, cal: cal, cache: cache}
}

// Login returns the profile of userID, creating it with defaults on first sight.
func (s *ProfileService) Login(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	if userID == "" {
		return nil, false, ErrMissingUser
	}
	profile, created, err := s.store.GetOrCreateProfile(ctx, DefaultProfile(userID))
	if err != nil {
		return nil, false, fmt.Errorf("get or create profile: %w", err)
	}
	if created {
		utils.LoggerFrom(ctx).Info("profile created", zap.String("user_id", userID))
	}
	return profile, created, nil
}

// Get returns the stored profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

// SetQuitDate stores the day the user stopped smoking. It may not be after today.
func (s *ProfileService) SetQuitDate(ctx context.Context, userID, date string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if date == "" {
		return nil, ErrQuitDateRequired
	}
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	if date > s.cal.Today() {
		return nil, ErrQuitDateInFuture
	}
	if _, _, err := s.store.GetOrCreateProfile(ctx, DefaultProfile(userID)); err != nil {
		return nil, fmt.Errorf("get or create profile: %w", err)
	}
	profile, err := s.store.SetQuitDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("set quit date: %w", err)
	}
	invalidateStats(ctx, s.cache, userID)
	return profile, nil
}

// UpdateInfo applies the supplied fields. At least one field is required.
func (s *ProfileService) UpdateInfo(ctx context.Context, userID string, in ProfileInput) (*models.UserProfile, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	update, err := in.toUpdate()
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return nil, ErrEmptyUpdate
	}
	if _, _, err := s.store.GetOrCreateProfile(ctx, DefaultProfile(userID)); err != nil {
		return nil, fmt.Errorf("get or create profile: %w", err)
	}
	profile, err := s.store.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	invalidateStats(ctx, s.cache, userID)
	return profile, nil
}

func (in ProfileInput) toUpdate() (store.ProfileUpdate, error) {
	var u store.ProfileUpdate
	if in.NickName != nil {
		v := utils.SanitizeText(*in.NickName)
		if utf8.RuneCountInString(v) > maxNickNameLen {
			return u, fmt.Errorf("%w: nick_name too long", ErrInvalidField)
		}
		u.NickName = &v
	}
	if in.AvatarURL != nil {
		v := utils.SanitizeText(*in.AvatarURL)
		if len(v) > maxAvatarURLLen {
			return u, fmt.Errorf("%w: avatar_url too long", ErrInvalidField)
		}
		u.AvatarURL = &v
	}
	if in.DailyCigarettes != nil {
		if *in.DailyCigarettes <= 0 {
			return u, fmt.Errorf("%w: daily_cigarettes must be positive", ErrInvalidField)
		}
		u.DailyCigarettes = in.DailyCigarettes
	}
	if in.CigarettesPerPack != nil {
		if *in.CigarettesPerPack <= 0 {
			return u, fmt.Errorf("%w: cigarettes_per_pack must be positive", ErrInvalidField)
		}
		u.CigarettesPerPack = in.CigarettesPerPack
	}
	if in.CigarettePrice != nil {
		if *in.CigarettePrice <= 0 {
			return u, fmt.Errorf("%w: cigarette_price must be positive", ErrInvalidField)
		}
		u.CigarettePrice = in.CigarettePrice
	}
	if in.Settings != nil {
		st := *in.Settings
		st.CustomRefuseText = utils.SanitizeText(st.CustomRefuseText)
		if utf8.RuneCountInString(st.CustomRefuseText) > maxRefuseTextLen {
			return u, fmt.Errorf("%w: custom_refuse_text too long", ErrInvalidField)
		}
		u.Settings = &st
	}
	return u, nil
}
