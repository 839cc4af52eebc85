package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
app:
  appPort: "9000"
  jwtSecret: from-file
  jwtTTL: 2h
  timezone: UTC
  makeUpMonthlyQuota: 5
database:
  driver: postgres
log:
  level: debug
`)

	c, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if c.AppPort != "9000" || c.JWTSecret != "from-file" || c.JWTTTL != 2*time.Hour {
		t.Errorf("app section not applied: %+v", c)
	}
	if c.DBDriver != "postgres" || c.DBPort != "5432" {
		t.Errorf("driver=%q port=%q", c.DBDriver, c.DBPort)
	}
	if c.MakeUpMonthlyQuota != 5 || c.LogLevel != "debug" {
		t.Errorf("quota=%d level=%q", c.MakeUpMonthlyQuota, c.LogLevel)
	}
	if c.Location == nil || c.Location.String() != "UTC" {
		t.Errorf("location = %v", c.Location)
	}
}

func TestLoadFromJSONWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{"app": {"JWTSecret": "from-file"}, "database": {"Driver": "mongo"}}`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("MAKEUP_MONTHLY_QUOTA", "4")

	c, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if c.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, env should win", c.JWTSecret)
	}
	if c.MakeUpMonthlyQuota != 4 {
		t.Errorf("quota = %d", c.MakeUpMonthlyQuota)
	}
	if c.DBDriver != "mongo" || c.MongoDatabase != "quitmate" {
		t.Errorf("driver=%q mongo db=%q", c.DBDriver, c.MongoDatabase)
	}
	if c.Timezone != "Asia/Shanghai" || c.IdentityHeader != "X-WX-OPENID" {
		t.Errorf("defaults not applied: tz=%q header=%q", c.Timezone, c.IdentityHeader)
	}
}

func TestLoadFromRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing secret", `{"database": {"Driver": "mysql"}}`},
		{"unknown driver", `{"app": {"JWTSecret": "s"}, "database": {"Driver": "oracle"}}`},
		{"bad timezone", `{"app": {"JWTSecret": "s", "Timezone": "Mars/Olympus"}}`},
		{"bad ttl", `{"app": {"JWTSecret": "s", "JWTTTL": "forever"}}`},
		{"broken json", `{"app": `},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "config.json", tc.body)
			if _, err := LoadFrom(dir); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
