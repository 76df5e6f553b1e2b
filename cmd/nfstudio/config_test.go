package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nfstudio/internal/scheduler"
	"github.com/rendis/nfstudio/internal/suggest"
)

func TestNewViper_Defaults(t *testing.T) {
	dir := isolate(t)
	v, err := newViper(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, ":4200", cfg.ListenAddr)
	assert.Equal(t, filepath.Join(dir, ".nfstudio", "nfstudio.db"), cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, suggest.DefaultModel, cfg.Model)
	assert.Equal(t, 800.0, cfg.CanvasWidth)
	assert.Equal(t, scheduler.DefaultRetention, cfg.DraftRetention)
	assert.Equal(t, scheduler.DefaultSchedule, cfg.PruneSchedule)
	assert.Equal(t, filepath.Join(dir, ".nfstudio", "bin"), cfg.MermaidASCIIDir)
}

func TestNewViper_FileAndEnv(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "settings.yaml", `
listen_addr: ":9000"
canvas_width: 1200
draft_retention: 48h
prune_schedule: "@hourly"
log_level: debug
`)
	t.Setenv("NFSTUDIO_LISTEN_ADDR", ":9100")

	v, err := newViper(path)
	require.NoError(t, err)
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.ListenAddr, "env wins over file")
	assert.Equal(t, 1200.0, cfg.CanvasWidth)
	assert.Equal(t, 48*time.Hour, cfg.DraftRetention)
	assert.Equal(t, "@hourly", cfg.PruneSchedule)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestNewViper_DefaultPath(t *testing.T) {
	dir := isolate(t)
	assert.Equal(t, filepath.Join(dir, ".nfstudio", "settings.yaml"), settingsPath())
	assert.Equal(t, filepath.Join(dir, ".nfstudio", "nfstudio.pid"), pidPath())

	_, err := newViper("")
	require.NoError(t, err)
}

func TestDiffConfigs(t *testing.T) {
	base := defaultConfig()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		level   bool
		layout  bool
		restart []string
	}{
		{"no change", func(*Config) {}, false, false, nil},
		{"log level", func(c *Config) { c.LogLevel = "debug" }, true, false, nil},
		{"canvas width", func(c *Config) { c.CanvasWidth = 1000 }, false, true, nil},
		{"listen addr", func(c *Config) { c.ListenAddr = ":1" }, false, false, []string{"listen_addr"}},
		{"storage", func(c *Config) {
			c.DBPath = "/tmp/x.db"
			c.DraftRetention = time.Hour
			c.PruneSchedule = "@daily"
		}, false, false, []string{"db_path", "draft_retention", "prune_schedule"}},
		{"format and model", func(c *Config) {
			c.LogFormat = "json"
			c.Model = "other"
		}, false, false, []string{"log_format", "model"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base
			tt.mutate(&next)
			d := diffConfigs(base, next)
			assert.Equal(t, tt.level, d.LogLevelChanged)
			assert.Equal(t, tt.layout, d.LayoutChanged)
			assert.Equal(t, tt.restart, d.RestartNeeded)
		})
	}
}
