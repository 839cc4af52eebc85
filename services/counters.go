package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/cppla/quitmate/models"
	"github.com/cppla/quitmate/store"
	"github.com/cppla/quitmate/utils"
)

const (
	defaultShareType = "friend"
	maxShareTypeLen  = 32
	maxPuffCount     = 1000
)

// CigaretteStats holds today's and lifetime virtual cigarette counters.
type CigaretteStats struct {
	Today models.CigaretteCounts `json:"today"`
	Total models.CigaretteCounts `json:"total"`
}

// CounterService tracks the virtual cigarette and share counters.
type CounterService struct {
	store store.Store
	cal   *Calendar
	cache Cache
}

// NewCounterService builds a CounterService. cache may be nil.
func NewCounterService(st store.Store, cal *Calendar, cache Cache) *CounterService {
	return &CounterService{store: st, cal: cal, cache: cache}
}

// RecordPuff adds count to today's counter for kind and returns today's counters.
func (s *CounterService) RecordPuff(ctx context.Context, userID, kind string, count int) (models.CigaretteCounts, error) {
	if userID == "" {
		return models.CigaretteCounts{}, ErrMissingUser
	}
	if !models.ValidPuffKind(kind) {
		return models.CigaretteCounts{}, ErrInvalidPuffKind
	}
	if count < 1 || count > maxPuffCount {
		return models.CigaretteCounts{}, ErrInvalidCount
	}
	day, err := s.store.IncrementCigarette(ctx, userID, s.cal.Today(), kind, count)
	if err != nil {
		return models.CigaretteCounts{}, fmt.Errorf("increment %s: %w", kind, err)
	}
	if kind == models.PuffKindPuff {
		invalidateStats(ctx, s.cache, userID)
	}
	return countsOf(day), nil
}

// CigaretteStats returns today's and lifetime counters.
func (s *CounterService) CigaretteStats(ctx context.Context, userID string) (*CigaretteStats, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	out := &CigaretteStats{}
	day, err := s.store.GetCigaretteDay(ctx, userID, s.cal.Today())
	switch {
	case err == nil:
		out.Today = countsOf(day)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load today's counters: %w", err)
	}
	if out.Total, err = s.store.SumCigarettes(ctx, userID); err != nil {
		return nil, fmt.Errorf("sum counters: %w", err)
	}
	return out, nil
}

// RecordShare counts one share for today and returns today's share count.
func (s *CounterService) RecordShare(ctx context.Context, userID, shareType string) (int, error) {
	if userID == "" {
		return 0, ErrMissingUser
	}
	shareType = utils.SanitizeText(shareType)
	if shareType == "" {
		shareType = defaultShareType
	}
	if utf8.RuneCountInString(shareType) > maxShareTypeLen {
		return 0, ErrInvalidShareType
	}
	day, err := s.store.IncrementShare(ctx, userID, s.cal.Today(), shareType)
	if err != nil {
		return 0, fmt.Errorf("increment share: %w", err)
	}
	invalidateStats(ctx, s.cache, userID)
	return day.ShareCount, nil
}

func countsOf(day *models.CigaretteDay) models.CigaretteCounts {
	return models.CigaretteCounts{
		PuffCount:  day.PuffCount,
		ShakeCount: day.ShakeCount,
		NewCount:   day.NewCount,
	}
}
