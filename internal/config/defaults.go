package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  DefaultDataDir(),
		Store:    "file",
		LogLevel: "info",
		Tracker: TrackerConfig{
			GuardRepeatActions: false,
			EndDatePolicy:      EndDateIgnore,
		},
		Sweep: SweepConfig{
			Interval:  time.Hour,
			MaxPasses: 1,
		},
		Reminder: ReminderConfig{
			Enabled:     true,
			Interval:    5 * time.Minute,
			MinInterval: 5 * time.Minute,
		},
		Remote: RemoteConfig{
			PushTimeout:  20 * time.Second,
			PushInterval: 5 * time.Minute,
			PushDebounce: 2 * time.Second,
		},
		Server: ServerConfig{
			Addr:   ":8742",
			DBPath: "clockwork-remote.db",
		},
	}
}

// DefaultDataDir returns ~/.clockwork, or .clockwork when there is no home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clockwork"
	}
	return filepath.Join(home, ".clockwork")
}

// DefaultPath returns the path of the default config file.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// WriteDefault writes a commented default configuration to path.
func WriteDefault(path string) error {
	content := `# clockwork configuration
# Every key can also be set as CLOCKWORK_<KEY>, e.g. CLOCKWORK_REMOTE_URL.

# Local backend: file (markdown per task), sqlite, or memory
store: file

# IANA zone used for "today"; empty uses the persisted setting
timezone: ""

log_level: info

tracker:
  guard_repeat_actions: false
  end_date_policy: ignore  # "ignore" or "stop"

sweep:
  interval: 1h
  max_passes: 1

reminder:
  enabled: true
  interval: 5m
  min_interval: 5m

# remote:
#   url: http://localhost:8742
#   api_key: changeme
#   push_timeout: 20s
#   push_interval: 5m
#   push_debounce: 2s
`
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
