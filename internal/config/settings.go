package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abatilo/clockwork/internal/recurrence"
)

const settingsFile = "settings.yaml"

// Settings is mutable state the application persists between runs.
type Settings struct {
	Timezone                  string     `yaml:"timezone,omitempty"`
	LastNotificationTimestamp *time.Time `yaml:"last_notification_timestamp,omitempty"`
}

func settingsPath(dataDir string) string {
	return filepath.Join(dataDir, settingsFile)
}

// LoadSettings reads the settings file. A missing file yields zero settings.
func LoadSettings(dataDir string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath(dataDir))
	if errors.Is(err, os.ErrNotExist) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, err
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", settingsFile, err)
	}
	return &s, nil
}

// SaveSettings writes the settings file atomically.
func SaveSettings(dataDir string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	path := settingsPath(dataDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// UpdateSettings loads, modifies and saves the settings file.
func UpdateSettings(dataDir string, fn func(*Settings)) (*Settings, error) {
	s, err := LoadSettings(dataDir)
	if err != nil {
		return nil, err
	}
	fn(s)
	if err := SaveSettings(dataDir, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Location resolves the zone for "today": the configured timezone, then the
// persisted setting, then the system zone.
func (c *Config) Location(s *Settings) (*time.Location, error) {
	name := c.Timezone
	if name == "" && s != nil {
		name = s.Timezone
	}
	if name == "" {
		return time.Local, nil
	}
	return recurrence.LoadLocation(name)
}
