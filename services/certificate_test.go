package services

import (
	"errors"
	"testing"
)

func TestResolveTier(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, TierNone},
		{6, TierNone},
		{7, "beginner"},
		{29, "beginner"},
		{30, "intermediate"},
		{89, "intermediate"},
		{90, "advanced"},
		{179, "advanced"},
		{180, "expert"},
		{364, "expert"},
		{365, "master"},
		{2000, "master"},
	}
	for _, tt := range tests {
		got, ok := ResolveTier(tt.days)
		if got.Tier != tt.want {
			t.Errorf("ResolveTier(%d) = %s, want %s", tt.days, got.Tier, tt.want)
		}
		if ok != (tt.want != TierNone) {
			t.Errorf("ResolveTier(%d) ok = %v", tt.days, ok)
		}
	}
}

func TestQuitDays(t *testing.T) {
	tests := []struct {
		quit, today string
		want        int
	}{
		{"2024-03-10", "2024-03-10", 1},
		{"2024-03-03", "2024-03-10", 8},
		{"2024-03-11", "2024-03-10", 0},
		{"2023-03-10", "2024-03-10", 367},
	}
	for _, tt := range tests {
		got, err := QuitDays(tt.quit, tt.today)
		if err != nil {
			t.Fatalf("QuitDays(%s, %s): %v", tt.quit, tt.today, err)
		}
		if got != tt.want {
			t.Errorf("QuitDays(%s, %s) = %d, want %d", tt.quit, tt.today, got, tt.want)
		}
	}
}

func TestGenerateCertificateIsIdempotent(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")
	env.login(t, "u1")
	if _, err := env.profiles.SetQuitDate(env.ctx, "u1", "2024-03-01"); err != nil {
		t.Fatalf("SetQuitDate: %v", err)
	}

	first, err := env.certificates.Generate(env.ctx, "u1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if first.Certificate.Tier != "beginner" || first.Certificate.QuitDays != 20 || first.Existing {
		t.Fatalf("first certificate = %+v", first)
	}
	if first.Certificate.Serial == "" {
		t.Error("certificate has no serial")
	}

	env.clock.setDate(t, "2024-03-25")
	second, err := env.certificates.Generate(env.ctx, "u1")
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if !second.Existing || second.Certificate.Serial != first.Certificate.Serial || second.Certificate.QuitDays != 20 {
		t.Errorf("second certificate = %+v, want the first one back", second)
	}
	if got := env.notifier.count(EventCertificateIssued); got != 1 {
		t.Errorf("certificate events = %d, want 1", got)
	}

	certs, err := env.certificates.List(env.ctx, "u1")
	if err != nil || len(certs) != 1 {
		t.Errorf("List = %+v, %v", certs, err)
	}
}

func TestGenerateCertificateRejections(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")
	if _, err := env.certificates.Generate(env.ctx, "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("unknown user err = %v", err)
	}
	env.login(t, "u1")
	if _, err := env.certificates.Generate(env.ctx, "u1"); !errors.Is(err, ErrQuitDateNotSet) {
		t.Errorf("no quit date err = %v", err)
	}
	if _, err := env.profiles.SetQuitDate(env.ctx, "u1", "2024-03-18"); err != nil {
		t.Fatalf("SetQuitDate: %v", err)
	}
	if _, err := env.certificates.Generate(env.ctx, "u1"); !errors.Is(err, ErrNotEligible) {
		t.Errorf("three days err = %v, want ErrNotEligible", err)
	}
}
