package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("expected default db host localhost, got %s", cfg.DBHost)
	}
	if cfg.RedisPort != 6379 {
		t.Errorf("expected default redis port 6379, got %d", cfg.RedisPort)
	}
	if len(cfg.CORSOrigins) != 1 {
		t.Errorf("expected one default CORS origin, got %d", len(cfg.CORSOrigins))
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("STAFF_ALERT_EMAIL", "ops@example.com")
	t.Setenv("CORS_ORIGINS", "https://solaceretreat.com, https://www.solaceretreat.com")
	t.Setenv("SITE_BASE_URL", "https://solaceretreat.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected env production, got %s", cfg.Env)
	}
	if cfg.StaffAlertEmail != "ops@example.com" {
		t.Errorf("unexpected staff alert email: %s", cfg.StaffAlertEmail)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://www.solaceretreat.com" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSOrigins)
	}
	if cfg.SiteBaseURL != "https://solaceretreat.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.SiteBaseURL)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid PORT")
	}
}
