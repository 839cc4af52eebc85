package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cppla/quitmate/store"
)

// DefaultStatsTTL bounds how long a cached stats view may live.
const DefaultStatsTTL = 10 * time.Minute

// HealthStats are the benefits derived from the quit date and smoking habit.
type HealthStats struct {
	SavedCigarettes int     `json:"saved_cigarettes"`
	SavedMoney      float64 `json:"saved_money"`
	HealthIndex     int     `json:"health_index"`
	NicotineReduced float64 `json:"nicotine_reduced"`
}

// UserStats is the dashboard read model.
type UserStats struct {
	NickName        string      `json:"nick_name"`
	AvatarURL       string      `json:"avatar_url"`
	QuitDate        string      `json:"quit_date"`
	QuitDays        int         `json:"quit_days"`
	Streak          int         `json:"streak"`
	Total           int         `json:"total"`
	HasCheckedToday bool        `json:"has_checked_today"`
	HealthStats     HealthStats `json:"health_stats"`
	BadgeCount      int         `json:"badge_count"`
	MakeUpRemaining int         `json:"make_up_remaining"`
	CigaretteCount  int         `json:"cigarette_count"`
	ShareCount      int         `json:"share_count"`
}

// ComputeHealth derives the health benefits of quitDays without smoking.
func ComputeHealth(quitDays, dailyCigarettes, perPack int, price float64) HealthStats {
	saved := quitDays * dailyCigarettes
	h := HealthStats{
		SavedCigarettes: saved,
		HealthIndex:     int(math.Min(100, math.Floor(float64(quitDays)/3.65))),
		NicotineReduced: round2(float64(saved) * 1.2),
	}
	if perPack > 0 {
		h.SavedMoney = round2(float64(saved) / float64(perPack) * price)
	}
	return h
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// StatsService assembles the dashboard and caches it per user and day.
type StatsService struct {
	store    store.Store
	cal      *Calendar
	checkins *CheckinService
	cache    Cache
	ttl      time.Duration
}

// NewStatsService builds a StatsService. cache may be nil to disable caching.
func NewStatsService(st store.Store, cal *Calendar, checkins *CheckinService, cache Cache, ttl time.Duration) *StatsService {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	return &StatsService{store: st, cal: cal, checkins: checkins, cache: cache, ttl: ttl}
}

// UserStats returns the dashboard of userID.
func (s *StatsService) UserStats(ctx context.Context, userID string) (*UserStats, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	today := s.cal.Today()
	// The generation is read before computing; a write landing mid-computation moves
	// readers to a new key, so the view stored below is never served after that write.
	var (
		key       string
		cacheable bool
	)
	if s.cache != nil {
		var gen int64
		if gen, cacheable = s.cache.Generation(ctx, statsGenerationKey(userID)); cacheable {
			key = statsKey(userID, today, gen)
			var cached UserStats
			if s.cache.GetJSON(ctx, key, &cached) {
				return &cached, nil
			}
		}
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	out := &UserStats{
		NickName:  profile.NickName,
		AvatarURL: profile.AvatarURL,
		QuitDate:  profile.QuitDate,
	}
	if profile.QuitDate != "" {
		if out.QuitDays, err = QuitDays(profile.QuitDate, today); err != nil {
			return nil, err
		}
	}
	out.HealthStats = ComputeHealth(out.QuitDays, profile.DailyCigarettes, profile.CigarettesPerPack, profile.CigarettePrice)

	if out.Streak, err = s.checkins.CurrentStreak(ctx, userID); err != nil {
		return nil, err
	}
	if out.Total, err = s.store.CountCheckins(ctx, userID); err != nil {
		return nil, fmt.Errorf("count check-ins: %w", err)
	}
	switch _, err := s.store.GetCheckin(ctx, userID, today); {
	case err == nil:
		out.HasCheckedToday = true
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("lookup today's check-in: %w", err)
	}
	if out.BadgeCount, err = s.store.CountBadges(ctx, userID); err != nil {
		return nil, fmt.Errorf("count badges: %w", err)
	}
	out.MakeUpRemaining = s.checkins.remaining(profile, MonthOf(today))
	counts, err := s.store.SumCigarettes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum cigarettes: %w", err)
	}
	out.CigaretteCount = counts.PuffCount
	if out.ShareCount, err = s.store.SumShares(ctx, userID); err != nil {
		return nil, fmt.Errorf("sum shares: %w", err)
	}

	if cacheable {
		s.cache.SetJSON(ctx, key, out, s.ttl)
	}
	return out, nil
}

// Invalidate retires every cached view of userID.
func (s *StatsService) Invalidate(ctx context.Context, userID string) {
	invalidateStats(ctx, s.cache, userID)
}
