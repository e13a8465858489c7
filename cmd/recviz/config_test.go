package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/recviz/internal/session"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"RECVIZ_LISTEN_ADDR", "RECVIZ_DB_PATH", "RECVIZ_LOG_LEVEL",
		"RECVIZ_AUTOPLAY_INTERVAL", "RECVIZ_SESSION_TTL", "RECVIZ_PANEL",
	} {
		t.Setenv(k, "")
	}
	return home
}

func writeSettings(t *testing.T, home, body string) {
	t.Helper()
	dir := filepath.Join(home, ".recviz")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(body), 0o644))
}

func TestLoadConfigDefaults(t *testing.T) {
	home := isolateHome(t)
	_, rv, err := newValidator()
	require.NoError(t, err)

	cfg, err := loadConfig(rv)
	require.NoError(t, err)
	assert.Equal(t, ":4200", cfg.ListenAddr)
	assert.Equal(t, filepath.Join(home, ".recviz", "recviz.db"), cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Panel)
	assert.Equal(t, session.DefaultInterval, cfg.Interval())
	assert.Equal(t, 30*time.Minute, cfg.TTL())
	assert.NoError(t, cfg.validate())
}

func TestLoadConfigLayers(t *testing.T) {
	home := isolateHome(t)
	writeSettings(t, home, `{"listen_addr": ":9000", "log_level": "debug", "autoplay_interval": "500ms", "panel": false}`)
	t.Setenv("RECVIZ_LOG_LEVEL", "warn")
	t.Setenv("RECVIZ_SESSION_TTL", "5m")
	_, rv, err := newValidator()
	require.NoError(t, err)

	cfg, err := loadConfig(rv)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "warn", cfg.LogLevel, "env wins over settings.json")
	assert.Equal(t, 500*time.Millisecond, cfg.Interval())
	assert.Equal(t, 5*time.Minute, cfg.TTL())
	assert.False(t, cfg.Panel)
}

func TestLoadConfigInvalidSettingsIgnored(t *testing.T) {
	home := isolateHome(t)
	writeSettings(t, home, `{"listen_addr": ":9000", "log_level": "verbose"}`)
	t.Setenv("RECVIZ_PANEL", "0")
	_, rv, err := newValidator()
	require.NoError(t, err)

	cfg, err := loadConfig(rv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings.json")
	assert.Equal(t, ":4200", cfg.ListenAddr, "the whole file is ignored")
	assert.False(t, cfg.Panel, "env still applies")
}

func TestConfigHelpers(t *testing.T) {
	cfg := Config{DBPath: "/tmp/r.db", AutoplayInterval: "soon", SessionTTL: "-1m"}
	assert.Equal(t, "file:/tmp/r.db", cfg.DSN())
	assert.Equal(t, session.DefaultInterval, cfg.Interval())
	assert.Equal(t, 30*time.Minute, cfg.TTL())
	assert.Error(t, cfg.validate())

	cfg.DBPath = "libsql://db.example.com"
	assert.Equal(t, "libsql://db.example.com", cfg.DSN())

	assert.Equal(t, "http://localhost:4200", baseURL(":4200"))
	assert.Equal(t, "http://127.0.0.1:80", baseURL("127.0.0.1:80"))
}

func TestDiffConfigs(t *testing.T) {
	old := defaultConfig()

	d := diffConfigs(old, old)
	assert.False(t, d.PanelChanged)
	assert.False(t, d.LogLevelChanged)
	assert.False(t, d.TTLChanged)
	assert.Empty(t, d.RestartNeeded)

	next := old
	next.Panel = false
	next.LogLevel = "debug"
	next.SessionTTL = "1h"
	next.ListenAddr = ":9999"
	next.AutoplayInterval = "1s"

	d = diffConfigs(old, next)
	assert.True(t, d.PanelChanged)
	assert.True(t, d.LogLevelChanged)
	assert.True(t, d.TTLChanged)
	assert.Equal(t, []string{"listen_addr", "autoplay_interval"}, d.RestartNeeded)
}
