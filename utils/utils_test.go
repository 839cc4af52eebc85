package utils

import (
	"testing"
	"time"

	"github.com/cppla/quitmate/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "first-secret"})
	token, exp, err := GenerateToken("user-42", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry %v is not in the future", exp)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != "user-42" || claims.Subject != "user-42" {
		t.Errorf("claims = %+v", claims)
	}

	config.Set(config.AppConfig{JWTSecret: "rotated-secret"})
	if _, err := ParseToken(token); err == nil {
		t.Error("token signed with another secret was accepted")
	}

	expired, _, err := GenerateToken("user-42", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseToken(expired); err == nil {
		t.Error("expired token was accepted")
	}
}

func TestBlacklistInMemory(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "first-secret"})
	BlacklistToken("tok-live", time.Now().Add(time.Hour))
	BlacklistToken("tok-dead", time.Now().Add(-time.Second))

	if !IsTokenBlacklisted("tok-live") {
		t.Error("revoked token not reported")
	}
	if IsTokenBlacklisted("tok-dead") {
		t.Error("already expired token should not be stored")
	}
	if IsTokenBlacklisted("tok-unknown") {
		t.Error("unknown token reported as revoked")
	}
}

func TestSanitizeText(t *testing.T) {
	cases := map[string]string{
		"  plain  ":                        "plain",
		"<b>bold</b> name":                 "bold name",
		"<script>alert(1)</script>戒烟中": "戒烟中",
	}
	for in, want := range cases {
		if got := SanitizeText(in); got != want {
			t.Errorf("SanitizeText(%q) = %q, want %q", in, got, want)
		}
	}
}
