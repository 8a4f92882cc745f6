package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/recurrence"
)

const envPrefix = "CLOCKWORK"

// Load builds the configuration from defaults, the config file at path and
// CLOCKWORK_* environment variables, in increasing precedence. An empty
// path reads the default file if it exists.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := loadFile(v, path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return v.ReadInConfig()
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("store", d.Store)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("tracker.guard_repeat_actions", d.Tracker.GuardRepeatActions)
	v.SetDefault("tracker.end_date_policy", d.Tracker.EndDatePolicy)
	v.SetDefault("sweep.interval", d.Sweep.Interval)
	v.SetDefault("sweep.max_passes", d.Sweep.MaxPasses)
	v.SetDefault("reminder.enabled", d.Reminder.Enabled)
	v.SetDefault("reminder.interval", d.Reminder.Interval)
	v.SetDefault("reminder.min_interval", d.Reminder.MinInterval)
	v.SetDefault("remote.url", d.Remote.URL)
	v.SetDefault("remote.api_key", d.Remote.APIKey)
	v.SetDefault("remote.push_timeout", d.Remote.PushTimeout)
	v.SetDefault("remote.push_interval", d.Remote.PushInterval)
	v.SetDefault("remote.push_debounce", d.Remote.PushDebounce)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.db_path", d.Server.DBPath)
	v.SetDefault("server.api_key", d.Server.APIKey)
}

func (c *Config) validate() error {
	switch c.Store {
	case "file", "sqlite", "memory":
	default:
		return cwerrors.ValidationError{Field: "store", Reason: fmt.Sprintf("unknown backend %q", c.Store)}
	}
	switch c.Tracker.EndDatePolicy {
	case EndDateIgnore, EndDateStop:
	default:
		return cwerrors.ValidationError{Field: "tracker.end_date_policy", Reason: fmt.Sprintf("must be %q or %q", EndDateIgnore, EndDateStop)}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.DataDir == "" {
		return cwerrors.ValidationError{Field: "data_dir", Reason: "must not be empty"}
	}
	if c.Timezone != "" {
		if _, err := recurrence.LoadLocation(c.Timezone); err != nil {
			return err
		}
	}
	for field, d := range map[string]int64{
		"sweep.interval":       int64(c.Sweep.Interval),
		"reminder.interval":    int64(c.Reminder.Interval),
		"remote.push_timeout":  int64(c.Remote.PushTimeout),
		"remote.push_interval": int64(c.Remote.PushInterval),
	} {
		if d <= 0 {
			return cwerrors.ValidationError{Field: field, Reason: "must be positive"}
		}
	}
	if c.Sweep.MaxPasses < 1 {
		return cwerrors.ValidationError{Field: "sweep.max_passes", Reason: "must be at least 1"}
	}
	return nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, cwerrors.ValidationError{Field: "log_level", Reason: fmt.Sprintf("unknown level %q", s)}
	}
	return level, nil
}
