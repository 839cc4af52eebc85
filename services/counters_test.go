package services

import (
	"errors"
	"strings"
	"testing"
)

func TestRecordPuff(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")

	if _, err := env.counters.RecordPuff(env.ctx, "u1", "burn", 1); !errors.Is(err, ErrInvalidPuffKind) {
		t.Errorf("unknown kind err = %v", err)
	}
	if _, err := env.counters.RecordPuff(env.ctx, "u1", "puff", 0); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("zero count err = %v", err)
	}

	if _, err := env.counters.RecordPuff(env.ctx, "u1", "puff", 2); err != nil {
		t.Fatalf("puff: %v", err)
	}
	today, err := env.counters.RecordPuff(env.ctx, "u1", "new", 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if today.PuffCount != 2 || today.NewCount != 1 || today.ShakeCount != 0 {
		t.Errorf("today = %+v", today)
	}

	env.clock.setDate(t, "2024-03-21")
	if _, err := env.counters.RecordPuff(env.ctx, "u1", "shake", 3); err != nil {
		t.Fatalf("shake: %v", err)
	}
	stats, err := env.counters.CigaretteStats(env.ctx, "u1")
	if err != nil {
		t.Fatalf("CigaretteStats: %v", err)
	}
	if stats.Today.ShakeCount != 3 || stats.Today.PuffCount != 0 {
		t.Errorf("today = %+v", stats.Today)
	}
	if stats.Total.PuffCount != 2 || stats.Total.ShakeCount != 3 || stats.Total.NewCount != 1 {
		t.Errorf("total = %+v", stats.Total)
	}
}

func TestRecordShare(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")
	for want := 1; want <= 2; want++ {
		n, err := env.counters.RecordShare(env.ctx, "u1", "moments")
		if err != nil {
			t.Fatalf("RecordShare: %v", err)
		}
		if n != want {
			t.Errorf("share count = %d, want %d", n, want)
		}
	}
	if _, err := env.counters.RecordShare(env.ctx, "u1", strings.Repeat("x", 40)); !errors.Is(err, ErrInvalidShareType) {
		t.Errorf("long share type err = %v", err)
	}
}
