package services

import (
	"errors"
	"testing"

	"github.com/cppla/quitmate/models"
)

func TestLoginCreatesDefaults(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")
	p, created, err := env.profiles.Login(env.ctx, "u1")
	if err != nil || !created {
		t.Fatalf("Login created=%v err=%v", created, err)
	}
	if p.DailyCigarettes != 20 || p.CigarettePrice != 15 || p.CigarettesPerPack != 20 {
		t.Errorf("unexpected habit defaults: %+v", p)
	}
	if p.MakeUpCreditsUsed != 0 || !p.Settings.NotifyCheckin || p.Settings.CustomRefuseText == "" {
		t.Errorf("unexpected defaults: %+v", p)
	}
	if _, created, _ := env.profiles.Login(env.ctx, "u1"); created {
		t.Error("second login created another profile")
	}
}

func TestSetQuitDate(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")
	env.login(t, "u1")
	tests := []struct {
		date string
		want error
	}{
		{"", ErrQuitDateRequired},
		{"20240301", ErrInvalidDate},
		{"2024-03-21", ErrQuitDateInFuture},
		{"2024-03-20", nil},
		{"2023-01-01", nil},
	}
	for _, tt := range tests {
		_, err := env.profiles.SetQuitDate(env.ctx, "u1", tt.date)
		if !errors.Is(err, tt.want) {
			t.Errorf("SetQuitDate(%q) err = %v, want %v", tt.date, err, tt.want)
		}
	}
	p, _ := env.profiles.Get(env.ctx, "u1")
	if p.QuitDate != "2023-01-01" {
		t.Errorf("QuitDate = %s", p.QuitDate)
	}
}

func TestUpdateInfo(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")
	env.login(t, "u1")

	if _, err := env.profiles.UpdateInfo(env.ctx, "u1", ProfileInput{}); !errors.Is(err, ErrEmptyUpdate) {
		t.Errorf("empty update err = %v", err)
	}
	bad := -1
	if _, err := env.profiles.UpdateInfo(env.ctx, "u1", ProfileInput{DailyCigarettes: &bad}); !errors.Is(err, ErrInvalidField) {
		t.Errorf("negative daily err = %v", err)
	}

	nick := "<b>ash</b><script>alert(1)</script>"
	price := 22.5
	p, err := env.profiles.UpdateInfo(env.ctx, "u1", ProfileInput{
		NickName:       &nick,
		CigarettePrice: &price,
		Settings:       &models.ProfileSettings{NotifyArticle: true, CustomRefuseText: "<i>no thanks</i>"},
	})
	if err != nil {
		t.Fatalf("UpdateInfo: %v", err)
	}
	if p.NickName != "ash" {
		t.Errorf("NickName = %q, want sanitized", p.NickName)
	}
	if p.CigarettePrice != 22.5 || p.DailyCigarettes != 20 {
		t.Errorf("numeric fields = %+v", p)
	}
	if !p.Settings.NotifyArticle || p.Settings.NotifyCheckin || p.Settings.CustomRefuseText != "no thanks" {
		t.Errorf("settings = %+v", p.Settings)
	}
}

func TestUpdateInfoCreatesMissingProfile(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")
	nick := "late"
	p, err := env.profiles.UpdateInfo(env.ctx, "u2", ProfileInput{NickName: &nick})
	if err != nil {
		t.Fatalf("UpdateInfo: %v", err)
	}
	if p.NickName != "late" || p.DailyCigarettes != 20 {
		t.Errorf("profile = %+v", p)
	}
}
