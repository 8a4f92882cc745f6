package config

import "time"

// Config is the full clockwork configuration.
type Config struct {
	// DataDir holds the task store, session and settings files.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// Store selects the local backend: file, sqlite or memory.
	Store string `yaml:"store" mapstructure:"store"`

	// Timezone overrides the persisted setting when non-empty.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`

	LogLevel string `yaml:"log_level" mapstructure:"log_level"`

	Tracker  TrackerConfig  `yaml:"tracker" mapstructure:"tracker"`
	Sweep    SweepConfig    `yaml:"sweep" mapstructure:"sweep"`
	Reminder ReminderConfig `yaml:"reminder" mapstructure:"reminder"`
	Remote   RemoteConfig   `yaml:"remote" mapstructure:"remote"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
}

// TrackerConfig configures task state transitions.
type TrackerConfig struct {
	GuardRepeatActions bool   `yaml:"guard_repeat_actions" mapstructure:"guard_repeat_actions"`
	EndDatePolicy      string `yaml:"end_date_policy" mapstructure:"end_date_policy"`
}

// SweepConfig configures the overdue sweeper.
type SweepConfig struct {
	Interval  time.Duration `yaml:"interval" mapstructure:"interval"`
	MaxPasses int           `yaml:"max_passes" mapstructure:"max_passes"`
}

// ReminderConfig configures the reminder check.
type ReminderConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Interval    time.Duration `yaml:"interval" mapstructure:"interval"`
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
}

// RemoteConfig points the client at a clockwork-remote server.
type RemoteConfig struct {
	URL          string        `yaml:"url" mapstructure:"url"`
	APIKey       string        `yaml:"api_key" mapstructure:"api_key"`
	PushTimeout  time.Duration `yaml:"push_timeout" mapstructure:"push_timeout"`
	PushInterval time.Duration `yaml:"push_interval" mapstructure:"push_interval"`
	PushDebounce time.Duration `yaml:"push_debounce" mapstructure:"push_debounce"`
}

// ServerConfig configures clockwork-remote.
type ServerConfig struct {
	Addr   string `yaml:"addr" mapstructure:"addr"`
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

const (
	EndDateIgnore = "ignore"
	EndDateStop   = "stop"
)

// StopAtEnd reports whether tasks past their end date are treated as ended.
func (c *Config) StopAtEnd() bool {
	return c.Tracker.EndDatePolicy == EndDateStop
}

// RemoteEnabled reports whether a remote server is configured.
func (c *Config) RemoteEnabled() bool {
	return c.Remote.URL != ""
}
