package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rendis/recviz/internal/session"
	"github.com/rendis/recviz/internal/validation"
)

// Config holds all recviz server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr       string `json:"listen_addr"`
	DBPath           string `json:"db_path"`
	LogLevel         string `json:"log_level"`
	AutoplayInterval string `json:"autoplay_interval"`
	SessionTTL       string `json:"session_ttl"`
	Panel            bool   `json:"panel"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:       ":4200",
		DBPath:           filepath.Join(recvizDir(), "recviz.db"),
		LogLevel:         "info",
		AutoplayInterval: session.DefaultInterval.String(),
		SessionTTL:       "30m",
		Panel:            true,
	}
}

func recvizDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recviz"
	}
	return filepath.Join(home, ".recviz")
}

func settingsPath() string {
	return filepath.Join(recvizDir(), "settings.json")
}

// loadConfig layers settings.json and RECVIZ_* env vars over the defaults.
// An invalid settings file is ignored as a whole and reported through the
// returned error; cfg is usable either way.
func loadConfig(v *validation.RequestValidator) (Config, error) {
	cfg := defaultConfig()
	var settingsErr error

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		fromFile := cfg
		if err := v.Settings(data, &fromFile); err != nil {
			settingsErr = fmt.Errorf("%s: %w", settingsPath(), err)
		} else {
			cfg = fromFile
		}
	}

	// Layer 3: env vars override.
	if val := os.Getenv("RECVIZ_LISTEN_ADDR"); val != "" {
		cfg.ListenAddr = val
	}
	if val := os.Getenv("RECVIZ_DB_PATH"); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv("RECVIZ_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	if val := os.Getenv("RECVIZ_AUTOPLAY_INTERVAL"); val != "" {
		cfg.AutoplayInterval = val
	}
	if val := os.Getenv("RECVIZ_SESSION_TTL"); val != "" {
		cfg.SessionTTL = val
	}
	if val := os.Getenv("RECVIZ_PANEL"); val != "" {
		cfg.Panel = val == "true" || val == "1"
	}

	return cfg, settingsErr
}

// Interval parses AutoplayInterval, falling back to the session default.
func (c Config) Interval() time.Duration {
	return parseDuration(c.AutoplayInterval, session.DefaultInterval)
}

// TTL parses SessionTTL, falling back to 30 minutes.
func (c Config) TTL() time.Duration {
	return parseDuration(c.SessionTTL, 30*time.Minute)
}

// DSN returns the libSQL file URI for DBPath.
func (c Config) DSN() string {
	if strings.HasPrefix(c.DBPath, "file:") || strings.Contains(c.DBPath, "://") {
		return c.DBPath
	}
	return "file:" + c.DBPath
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// validate rejects values the server cannot start with.
func (c Config) validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is empty"))
	}
	return errors.Join(errs...)
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	PanelChanged    bool
	LogLevelChanged bool
	TTLChanged      bool
	RestartNeeded   []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.Panel != new.Panel {
		d.PanelChanged = true
	}
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.TTL() != new.TTL() {
		d.TTLChanged = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.Interval() != new.Interval() {
		d.RestartNeeded = append(d.RestartNeeded, "autoplay_interval")
	}
	return d
}
