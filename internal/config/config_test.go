package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MinimalFileGetsDefaults(t *testing.T) {
	path := writeConfig(t, `
season: "2025-26"
database:
  url: postgres://localhost:5432/propcast?sslmode=disable
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("environment = %q, want development default", cfg.Environment)
	}
	if cfg.Training.ValDays != 3 || cfg.Training.TestDays != 7 {
		t.Errorf("training windows = %d/%d, want 3/7 defaults", cfg.Training.ValDays, cfg.Training.TestDays)
	}
	if cfg.Training.HistoricalValDays != 15 || cfg.Training.HistoricalTestDays != 30 {
		t.Errorf("historical windows = %d/%d, want 15/30 defaults",
			cfg.Training.HistoricalValDays, cfg.Training.HistoricalTestDays)
	}
	if cfg.Policy.MinConfidence != 0.55 || cfg.Policy.MinEdgePct != 2.0 {
		t.Errorf("policy defaults = %v/%v, want 0.55/2.0", cfg.Policy.MinConfidence, cfg.Policy.MinEdgePct)
	}
	if cfg.Models.Dir != "trained_models" {
		t.Errorf("model dir = %q, want trained_models default", cfg.Models.Dir)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info default", cfg.Logging.Level)
	}
}

func TestLoad_ExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
environment: production
season: "2025-26"
database:
  url: postgres://db:5432/propcast
training:
  val_days: 5
  min_minutes: 15
policy:
  min_confidence: 0.6
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Training.ValDays != 5 {
		t.Errorf("val_days = %d, want 5", cfg.Training.ValDays)
	}
	if cfg.Training.MinMinutes != 15 {
		t.Errorf("min_minutes = %v, want 15", cfg.Training.MinMinutes)
	}
	if cfg.Policy.MinConfidence != 0.6 {
		t.Errorf("min_confidence = %v, want 0.6", cfg.Policy.MinConfidence)
	}
	// Unset sections still get defaults.
	if cfg.Training.TestDays != 7 {
		t.Errorf("test_days = %d, want 7 default", cfg.Training.TestDays)
	}
}

func TestLoad_ValidationRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"missing season": `
database:
  url: postgres://localhost/propcast
`,
		"missing database url": `
season: "2025-26"
`,
		"confidence below coin flip": `
season: "2025-26"
database:
  url: postgres://localhost/propcast
policy:
  min_confidence: 0.4
`,
		"unknown environment": `
environment: staging
season: "2025-26"
database:
  url: postgres://localhost/propcast
`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://override:5432/propcast")
	t.Setenv("REDIS_ADDR", "redis-prod:6379")

	path := writeConfig(t, `
season: "2025-26"
database:
  url: postgres://file:5432/propcast
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.URL != "postgres://override:5432/propcast" {
		t.Errorf("database url = %q, env override lost", cfg.Database.URL)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis-prod:6379" {
		t.Errorf("redis = %v/%q, REDIS_ADDR should enable and point the cache", cfg.Redis.Enabled, cfg.Redis.Addr)
	}
}
