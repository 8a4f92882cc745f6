package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Store != "file" {
		t.Errorf("Store = %q, want file", cfg.Store)
	}
	if cfg.Remote.PushTimeout != 20*time.Second {
		t.Errorf("PushTimeout = %v, want 20s", cfg.Remote.PushTimeout)
	}
	if cfg.Sweep.MaxPasses != 1 {
		t.Errorf("MaxPasses = %d, want 1", cfg.Sweep.MaxPasses)
	}
	if cfg.StopAtEnd() {
		t.Error("default end date policy should be ignore")
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
store: sqlite
timezone: Europe/London
tracker:
  end_date_policy: stop
  guard_repeat_actions: true
sweep:
  interval: 30m
  max_passes: 4
remote:
  url: http://localhost:9000
  push_timeout: 5s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store != "sqlite" {
		t.Errorf("Store = %q", cfg.Store)
	}
	if !cfg.StopAtEnd() || !cfg.Tracker.GuardRepeatActions {
		t.Errorf("Tracker = %+v", cfg.Tracker)
	}
	if cfg.Sweep.Interval != 30*time.Minute || cfg.Sweep.MaxPasses != 4 {
		t.Errorf("Sweep = %+v", cfg.Sweep)
	}
	if !cfg.RemoteEnabled() || cfg.Remote.PushTimeout != 5*time.Second {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	// Unset keys keep their defaults.
	if cfg.Reminder.Interval != 5*time.Minute {
		t.Errorf("Reminder.Interval = %v", cfg.Reminder.Interval)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "store: sqlite\n")
	t.Setenv("CLOCKWORK_STORE", "memory")
	t.Setenv("CLOCKWORK_REMOTE_URL", "http://env:1")
	t.Setenv("CLOCKWORK_SWEEP_MAX_PASSES", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store != "memory" {
		t.Errorf("Store = %q, want memory", cfg.Store)
	}
	if cfg.Remote.URL != "http://env:1" {
		t.Errorf("Remote.URL = %q", cfg.Remote.URL)
	}
	if cfg.Sweep.MaxPasses != 3 {
		t.Errorf("MaxPasses = %d", cfg.Sweep.MaxPasses)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("an explicit missing config file should fail")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"bad store", "store: postgres\n", "store"},
		{"bad policy", "tracker:\n  end_date_policy: wrap\n", "tracker.end_date_policy"},
		{"bad level", "log_level: loud\n", "log_level"},
		{"bad timezone", "timezone: Mars/Olympus\n", "timezone"},
		{"zero passes", "sweep:\n  max_passes: 0\n", "sweep.max_passes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			var ve cwerrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Load = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestWriteDefaultLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store != "file" {
		t.Errorf("Store = %q", cfg.Store)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings on empty dir: %v", err)
	}
	if s.Timezone != "" || s.LastNotificationTimestamp != nil {
		t.Errorf("expected zero settings, got %+v", s)
	}

	at := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	if _, err := UpdateSettings(dir, func(s *Settings) {
		s.Timezone = "Australia/Sydney"
		s.LastNotificationTimestamp = &at
	}); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	loaded, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded.Timezone != "Australia/Sydney" {
		t.Errorf("Timezone = %q", loaded.Timezone)
	}
	if loaded.LastNotificationTimestamp == nil || !loaded.LastNotificationTimestamp.Equal(at) {
		t.Errorf("LastNotificationTimestamp = %v", loaded.LastNotificationTimestamp)
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()

	loc, err := cfg.Location(&Settings{Timezone: "Asia/Tokyo"})
	if err != nil || loc.String() != "Asia/Tokyo" {
		t.Errorf("settings zone: %v, %v", loc, err)
	}

	cfg.Timezone = "America/New_York"
	loc, err = cfg.Location(&Settings{Timezone: "Asia/Tokyo"})
	if err != nil || loc.String() != "America/New_York" {
		t.Errorf("config zone should win: %v, %v", loc, err)
	}

	cfg.Timezone = ""
	loc, err = cfg.Location(nil)
	if err != nil || loc != time.Local {
		t.Errorf("fallback: %v, %v", loc, err)
	}
}
