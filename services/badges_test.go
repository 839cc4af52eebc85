package services

import "testing"

func TestBadgeOverview(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")
	env.seed(t, "u1", "2024-03-19", 29, 40, false)
	if _, err := env.checkins.CheckIn(env.ctx, "u1"); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	overview, err := env.badges.List(env.ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if overview.Total != len(BadgeTable) || overview.UnlockedCount != 1 {
		t.Fatalf("overview counts = %d/%d", overview.UnlockedCount, overview.Total)
	}
	if overview.Badges[0].BadgeType != "month_warrior" || overview.Badges[0].Description != "连续签到30天" {
		t.Errorf("unlocked = %+v", overview.Badges[0])
	}
	for _, row := range overview.All {
		want := row.Type == "month_warrior"
		if row.Unlocked != want {
			t.Errorf("%s unlocked = %v", row.Type, row.Unlocked)
		}
		if want && row.UnlockedAt == nil {
			t.Errorf("%s has no unlock time", row.Type)
		}
	}

	empty, err := env.badges.List(env.ctx, "nobody")
	if err != nil || empty.UnlockedCount != 0 || len(empty.Badges) != 0 {
		t.Errorf("empty overview = %+v, %v", empty, err)
	}
}
