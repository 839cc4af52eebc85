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

// DefaultMakeUpQuota is the number of make-up check-ins allowed per calendar month.
const DefaultMakeUpQuota = 3

// CheckinResult is the outcome of a forward or make-up check-in.
type CheckinResult struct {
	Date             string               `json:"date"`
	Streak           int                  `json:"streak"`
	Total            int                  `json:"total"`
	AlreadyCheckedIn bool                 `json:"already_checked_in"`
	IsMakeUp         bool                 `json:"is_make_up"`
	NewBadges        []models.BadgeUnlock `json:"new_badges"`
	MakeUpRemaining  *int                 `json:"make_up_remaining,omitempty"`
}

// MonthRecords is the calendar view of one month.
type MonthRecords struct {
	Year            int              `json:"year"`
	Month           int              `json:"month"`
	Records         []CalendarRecord `json:"records"`
	Streak          int              `json:"streak"`
	Total           int              `json:"total"`
	MakeUpRemaining int              `json:"make_up_remaining"`
}

// CalendarRecord is one marked day of the calendar.
type CalendarRecord struct {
	Date     string `json:"date"`
	IsMakeUp bool   `json:"is_make_up"`
}

// CheckinService owns the ledger writes: daily check-in and make-up.
type CheckinService struct {
	store    store.Store
	cal      *Calendar
	badges   *BadgeService
	notifier Notifier
	cache    Cache
	quota    int
}

// NewCheckinService builds a CheckinService. A quota of zero or less falls back to DefaultMakeUpQuota.
func NewCheckinService(st store.Store, cal *Calendar, badges *BadgeService, notifier Notifier, cache Cache, quota int) *CheckinService {
	if quota <= 0 {
		quota = DefaultMakeUpQuota
	}
	return &CheckinService{
		store:    st,
		cal:      cal,
		badges:   badges,
		notifier: orNop(notifier),
		cache:    cache,
		quota:    quota,
	}
}

func snapshot(rec *models.CheckinRecord, already bool) *CheckinResult {
	return &CheckinResult{
		Date:             rec.Date,
		Streak:           rec.StreakAtWrite,
		Total:            rec.TotalAtWrite,
		AlreadyCheckedIn: already,
		IsMakeUp:         rec.IsMakeUp,
		NewBadges:        []models.BadgeUnlock{},
	}
}

// ComputeStreak derives the snapshot today's check-in would carry. When a record for
// today already exists it is returned with AlreadyCheckedIn set.
func (s *CheckinService) ComputeStreak(ctx context.Context, userID, today string) (*CheckinResult, error) {
	existing, err := s.store.GetCheckin(ctx, userID, today)
	if err == nil {
		return snapshot(existing, true), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup today's check-in: %w", err)
	}

	yesterday, err := AddDays(today, -1)
	if err != nil {
		return nil, err
	}
	prev, err := s.store.GetCheckin(ctx, userID, yesterday)
	switch {
	case err == nil:
		return &CheckinResult{Date: today, Streak: prev.StreakAtWrite + 1, Total: prev.TotalAtWrite + 1}, nil
	case errors.Is(err, store.ErrNotFound):
		count, err := s.store.CountCheckins(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("count check-ins: %w", err)
		}
		return &CheckinResult{Date: today, Streak: 1, Total: count + 1}, nil
	default:
		return nil, fmt.Errorf("lookup yesterday's check-in: %w", err)
	}
}

// CheckIn records today's check-in for userID and unlocks any milestone reached.
// Repeated calls on the same day return the stored snapshot without writing.
func (s *CheckinService) CheckIn(ctx context.Context, userID string) (*CheckinResult, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	today := s.cal.Today()
	res, err := s.ComputeStreak(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	if res.AlreadyCheckedIn {
		return res, nil
	}

	rec := &models.CheckinRecord{
		UserID:        userID,
		Date:          today,
		Timestamp:     s.cal.Now(),
		IsMakeUp:      false,
		StreakAtWrite: res.Streak,
		TotalAtWrite:  res.Total,
	}
	if err := s.store.InsertCheckin(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A concurrent request for the same day won; report its record.
			existing, gerr := s.store.GetCheckin(ctx, userID, today)
			if gerr != nil {
				return nil, fmt.Errorf("reload check-in: %w", gerr)
			}
			return snapshot(existing, true), nil
		}
		return nil, fmt.Errorf("insert check-in: %w", err)
	}
	invalidateStats(ctx, s.cache, userID)

	out := snapshot(rec, false)
	if s.badges != nil {
		unlocked, err := s.badges.Unlock(ctx, userID, rec.StreakAtWrite)
		if err != nil {
			utils.LoggerFrom(ctx).Error("badge unlock failed",
				zap.String("user_id", userID),
				zap.Int("streak", rec.StreakAtWrite),
				zap.Error(err),
			)
		}
		if unlocked != nil {
			out.NewBadges = unlocked
		}
	}
	s.notifier.Publish(userID, EventCheckedIn, out)
	return out, nil
}

// remaining returns the make-up credits left this month, honouring the lazy monthly reset.
func (s *CheckinService) remaining(profile *models.UserProfile, month string) int {
	used := profile.MakeUpCreditsUsed
	if profile.LastResetMonth != month {
		used = 0
	}
	if left := s.quota - used; left > 0 {
		return left
	}
	return 0
}

// MakeUp records a check-in for a missed day of the current month. Checks run in a
// fixed order and the first failure is returned: date in the past, same month,
// quota left, no record yet. Neighbouring records are not rewritten and no badge is awarded.
func (s *CheckinService) MakeUp(ctx context.Context, userID, targetDate string) (*CheckinResult, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if _, err := ParseDate(targetDate); err != nil {
		return nil, err
	}
	today := s.cal.Today()
	if targetDate >= today {
		return nil, ErrDateNotPast
	}
	month := MonthOf(today)
	if MonthOf(targetDate) != month {
		return nil, ErrWrongMonth
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if s.remaining(profile, month) == 0 {
		return nil, ErrQuotaExhausted
	}

	if _, err := s.store.GetCheckin(ctx, userID, targetDate); err == nil {
		return nil, ErrAlreadyCheckedIn
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup target check-in: %w", err)
	}

	used, err := s.store.ReserveMakeUpCredit(ctx, userID, month, s.quota)
	if err != nil {
		if errors.Is(err, store.ErrNoCredit) {
			return nil, ErrQuotaExhausted
		}
		return nil, fmt.Errorf("reserve make-up credit: %w", err)
	}

	rec, err := s.makeUpRecord(ctx, userID, targetDate)
	if err == nil {
		err = s.store.InsertCheckin(ctx, rec)
	}
	if err != nil {
		if rerr := s.store.RefundMakeUpCredit(ctx, userID, month); rerr != nil {
			utils.LoggerFrom(ctx).Error("make-up credit refund failed",
				zap.String("user_id", userID),
				zap.String("month", month),
				zap.Error(rerr),
			)
		}
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, fmt.Errorf("insert make-up check-in: %w", err)
	}
	invalidateStats(ctx, s.cache, userID)

	utils.LoggerFrom(ctx).Info("make-up check-in recorded",
		zap.String("user_id", userID),
		zap.String("date", targetDate),
		zap.Int("credits_used", used),
	)
	out := snapshot(rec, false)
	left := s.quota - used
	if left < 0 {
		left = 0
	}
	out.MakeUpRemaining = &left
	return out, nil
}

// makeUpRecord builds the snapshot for a back-filled day from the ledger as it stands.
func (s *CheckinService) makeUpRecord(ctx context.Context, userID, targetDate string) (*models.CheckinRecord, error) {
	prevDate, err := AddDays(targetDate, -1)
	if err != nil {
		return nil, err
	}
	streak := 1
	prev, err := s.store.GetCheckin(ctx, userID, prevDate)
	switch {
	case err == nil:
		streak = prev.StreakAtWrite + 1
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("lookup previous day: %w", err)
	}
	before, err := s.store.CountCheckinsBefore(ctx, userID, targetDate)
	if err != nil {
		return nil, fmt.Errorf("count earlier check-ins: %w", err)
	}
	return &models.CheckinRecord{
		UserID:        userID,
		Date:          targetDate,
		Timestamp:     s.cal.Now(),
		IsMakeUp:      true,
		StreakAtWrite: streak,
		TotalAtWrite:  before + 1,
	}, nil
}

// CurrentStreak is the streak of the latest forward check-in while it is still alive,
// i.e. dated today or yesterday. Otherwise the streak is broken and reported as 0.
func (s *CheckinService) CurrentStreak(ctx context.Context, userID string) (int, error) {
	latest, err := s.store.LatestForwardCheckin(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("latest check-in: %w", err)
	}
	if latest.Date == s.cal.Today() || latest.Date == s.cal.Yesterday() {
		return latest.StreakAtWrite, nil
	}
	return 0, nil
}

// MakeUpRemaining returns the credits the user may still spend this month.
func (s *CheckinService) MakeUpRemaining(ctx context.Context, userID string) (int, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.quota, nil
		}
		return 0, fmt.Errorf("load profile: %w", err)
	}
	return s.remaining(profile, s.cal.CurrentMonth()), nil
}

// Records returns the calendar of year-month. Zero values select the current month.
func (s *CheckinService) Records(ctx context.Context, userID string, year int, month time.Month) (*MonthRecords, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	now := s.cal.Now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = now.Month()
	}
	from, to, err := MonthRange(year, month)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.ListCheckins(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	out := &MonthRecords{Year: year, Month: int(month), Records: make([]CalendarRecord, 0, len(recs))}
	for _, r := range recs {
		out.Records = append(out.Records, CalendarRecord{Date: r.Date, IsMakeUp: r.IsMakeUp})
	}
	if out.Streak, err = s.CurrentStreak(ctx, userID); err != nil {
		return nil, err
	}
	if out.Total, err = s.store.CountCheckins(ctx, userID); err != nil {
		return nil, fmt.Errorf("count check-ins: %w", err)
	}
	if out.MakeUpRemaining, err = s.MakeUpRemaining(ctx, userID); err != nil {
		return nil, err
	}
	return out, nil
}
