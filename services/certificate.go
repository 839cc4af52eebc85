package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cppla/quitmate/models"
	"github.com/cppla/quitmate/store"
	"github.com/cppla/quitmate/utils"
)

// TierNone is reported when quitDays qualifies for no certificate.
const TierNone = "none"

// TierDef is one certificate level.
type TierDef struct {
	Tier  string `json:"tier"`
	Title string `json:"title"`
	Days  int    `json:"days"`
}

// TierTable lists certificate levels in ascending order of days.
var TierTable = []TierDef{
	{Tier: "beginner", Title: "戒烟新手", Days: 7},
	{Tier: "intermediate", Title: "戒烟达人", Days: 30},
	{Tier: "advanced", Title: "戒烟高手", Days: 90},
	{Tier: "expert", Title: "戒烟专家", Days: 180},
	{Tier: "master", Title: "戒烟大师", Days: 365},
}

// ResolveTier returns the highest tier whose threshold quitDays reaches.
func ResolveTier(quitDays int) (TierDef, bool) {
	for i := len(TierTable) - 1; i >= 0; i-- {
		if quitDays >= TierTable[i].Days {
			return TierTable[i], true
		}
	}
	return TierDef{Tier: TierNone}, false
}

// QuitDays counts quitDate itself as day one. A quit date after today yields 0.
func QuitDays(quitDate, today string) (int, error) {
	diff, err := DaysBetween(quitDate, today)
	if err != nil {
		return 0, err
	}
	if diff < 0 {
		return 0, nil
	}
	return diff + 1, nil
}

// CertificateResult wraps an issued certificate.
type CertificateResult struct {
	Certificate models.CertificateRecord `json:"certificate"`
	Title       string                   `json:"title"`
	Existing    bool                     `json:"existing"`
}

// CertificateService issues one certificate per user and tier.
type CertificateService struct {
	store    store.Store
	cal      *Calendar
	notifier Notifier
}

// NewCertificateService builds a CertificateService. notifier may be nil.
func NewCertificateService(st store.Store, cal *Calendar, notifier Notifier) *CertificateService {
	return &CertificateService{store: st, cal: cal, notifier: orNop(notifier)}
}

// Generate resolves the tier from the stored quit date and returns the certificate for
// it, creating it on first request.
func (s *CertificateService) Generate(ctx context.Context, userID string) (*CertificateResult, error) {
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
	if profile.QuitDate == "" {
		return nil, ErrQuitDateNotSet
	}
	quitDays, err := QuitDays(profile.QuitDate, s.cal.Today())
	if err != nil {
		return nil, err
	}
	tier, ok := ResolveTier(quitDays)
	if !ok {
		return nil, ErrNotEligible
	}

	if existing, err := s.store.GetCertificate(ctx, userID, tier.Tier); err == nil {
		return &CertificateResult{Certificate: *existing, Title: tier.Title, Existing: true}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup certificate: %w", err)
	}

	cert := models.CertificateRecord{
		Serial:    uuid.NewString(),
		UserID:    userID,
		Tier:      tier.Tier,
		QuitDays:  quitDays,
		CreatedAt: s.cal.Now(),
	}
	if err := s.store.InsertCertificate(ctx, &cert); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			existing, gerr := s.store.GetCertificate(ctx, userID, tier.Tier)
			if gerr != nil {
				return nil, fmt.Errorf("reload certificate: %w", gerr)
			}
			return &CertificateResult{Certificate: *existing, Title: tier.Title, Existing: true}, nil
		}
		return nil, fmt.Errorf("insert certificate: %w", err)
	}
	utils.LoggerFrom(ctx).Info("certificate issued",
		zap.String("user_id", userID),
		zap.String("tier", tier.Tier),
		zap.Int("quit_days", quitDays),
	)
	s.notifier.Publish(userID, EventCertificateIssued, cert)
	return &CertificateResult{Certificate: cert, Title: tier.Title}, nil
}

// List returns the certificates of userID, highest first.
func (s *CertificateService) List(ctx context.Context, userID string) ([]models.CertificateRecord, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	certs, err := s.store.ListCertificates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	if certs == nil {
		certs = []models.CertificateRecord{}
	}
	return certs, nil
}
