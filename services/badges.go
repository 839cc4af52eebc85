package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/quitmate/models"
	"github.com/cppla/quitmate/store"
	"github.com/cppla/quitmate/utils"
)

// BadgeDef is one streak milestone.
type BadgeDef struct {
	Type string `json:"badge_type"`
	Name string `json:"badge_name"`
	Days int    `json:"days"`
	Icon string `json:"icon"`
}

// Description is the human readable unlock condition.
func (b BadgeDef) Description() string {
	return fmt.Sprintf("连续签到%d天", b.Days)
}

// BadgeTable lists every streak milestone in ascending order of days.
var BadgeTable = []BadgeDef{
	{Type: "week_hero", Name: "周度英雄", Days: 7, Icon: "🏅"},
	{Type: "month_warrior", Name: "月度勇士", Days: 30, Icon: "🥉"},
	{Type: "bimonth_hero", Name: "双月英雄", Days: 60, Icon: "🥈"},
	{Type: "quarter_champion", Name: "季度冠军", Days: 90, Icon: "🥇"},
	{Type: "halfyear_legend", Name: "半年传奇", Days: 180, Icon: "🏆"},
	{Type: "year_king", Name: "年度王者", Days: 365, Icon: "👑"},
	{Type: "twoyear_legend", Name: "傲视宗师", Days: 730, Icon: "⭐"},
	{Type: "threeyear_legend", Name: "传奇王者", Days: 1095, Icon: "⭐"},
}

// BadgesAt returns the milestones whose threshold equals streak exactly.
// Thresholds skipped by a jump in the streak are never matched later.
func BadgesAt(streak int) []BadgeDef {
	var out []BadgeDef
	for _, b := range BadgeTable {
		if b.Days == streak {
			out = append(out, b)
		}
	}
	return out
}

// BadgeStatus is one row of the badge wall.
type BadgeStatus struct {
	BadgeDef
	Description string     `json:"description"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// BadgeOverview is the result of listing a user's badges.
type BadgeOverview struct {
	Badges        []models.BadgeUnlock `json:"badges"`
	All           []BadgeStatus        `json:"all"`
	UnlockedCount int                  `json:"unlocked_count"`
	Total         int                  `json:"total"`
}

// BadgeService unlocks and lists streak milestones.
type BadgeService struct {
	store    store.Store
	cal      *Calendar
	notifier Notifier
	cache    Cache
}

// NewBadgeService builds a BadgeService. notifier and cache may be nil.
func NewBadgeService(st store.Store, cal *Calendar, notifier Notifier, cache Cache) *BadgeService {
	return &BadgeService{store: st, cal: cal, notifier: orNop(notifier), cache: cache}
}

// Unlock inserts the badges earned by reaching streak and returns those that are new.
func (s *BadgeService) Unlock(ctx context.Context, userID string, streak int) ([]models.BadgeUnlock, error) {
	var unlocked []models.BadgeUnlock
	for _, def := range BadgesAt(streak) {
		has, err := s.store.HasBadge(ctx, userID, def.Type)
		if err != nil {
			return unlocked, fmt.Errorf("lookup badge %s: %w", def.Type, err)
		}
		if has {
			continue
		}
		badge := models.BadgeUnlock{
			UserID:      userID,
			BadgeType:   def.Type,
			BadgeName:   def.Name,
			Days:        def.Days,
			Icon:        def.Icon,
			Description: def.Description(),
			UnlockedAt:  s.cal.Now(),
		}
		if err := s.store.InsertBadge(ctx, &badge); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				continue
			}
			return unlocked, fmt.Errorf("insert badge %s: %w", def.Type, err)
		}
		utils.LoggerFrom(ctx).Info("badge unlocked",
			zap.String("user_id", userID),
			zap.String("badge_type", def.Type),
			zap.Int("streak", streak),
		)
		s.notifier.Publish(userID, EventBadgeUnlocked, badge)
		unlocked = append(unlocked, badge)
	}
	if len(unlocked) > 0 {
		invalidateStats(ctx, s.cache, userID)
	}
	return unlocked, nil
}

// List returns the unlocked badges newest first together with the full badge wall.
func (s *BadgeService) List(ctx context.Context, userID string) (*BadgeOverview, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	badges, err := s.store.ListBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	byType := make(map[string]models.BadgeUnlock, len(badges))
	for _, b := range badges {
		byType[b.BadgeType] = b
	}
	all := make([]BadgeStatus, 0, len(BadgeTable))
	for _, def := range BadgeTable {
		status := BadgeStatus{BadgeDef: def, Description: def.Description()}
		if b, ok := byType[def.Type]; ok {
			at := b.UnlockedAt
			status.Unlocked = true
			status.UnlockedAt = &at
		}
		all = append(all, status)
	}
	if badges == nil {
		badges = []models.BadgeUnlock{}
	}
	return &BadgeOverview{
		Badges:        badges,
		All:           all,
		UnlockedCount: len(badges),
		Total:         len(BadgeTable),
	}, nil
}
