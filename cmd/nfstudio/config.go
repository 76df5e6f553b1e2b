package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/internal/scheduler"
	"github.com/rendis/nfstudio/internal/suggest"
)

// Config holds all nfstudio configuration.
// Priority: flags > NFSTUDIO_* env vars > settings.yaml > defaults.
type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	DBPath          string        `mapstructure:"db_path" yaml:"db_path"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string        `mapstructure:"log_format" yaml:"log_format"`
	Model           string        `mapstructure:"model" yaml:"model"`
	CanvasWidth     float64       `mapstructure:"canvas_width" yaml:"canvas_width"`
	DraftRetention  time.Duration `mapstructure:"draft_retention" yaml:"draft_retention"`
	PruneSchedule   string        `mapstructure:"prune_schedule" yaml:"prune_schedule"`
	MermaidASCIIDir string        `mapstructure:"mermaid_ascii_dir" yaml:"mermaid_ascii_dir"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:      ":4200",
		DBPath:          filepath.Join(nfstudioDir(), "nfstudio.db"),
		LogLevel:        "info",
		LogFormat:       "text",
		Model:           suggest.DefaultModel,
		CanvasWidth:     engine.DefaultOptions().CanvasWidth,
		DraftRetention:  scheduler.DefaultRetention,
		PruneSchedule:   scheduler.DefaultSchedule,
		MermaidASCIIDir: filepath.Join(nfstudioDir(), "bin"),
	}
}

func nfstudioDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nfstudio"
	}
	return filepath.Join(home, ".nfstudio")
}

func settingsPath() string {
	return filepath.Join(nfstudioDir(), "settings.yaml")
}

// newViper builds a viper instance with defaults, the settings file and the
// NFSTUDIO_ environment prefix. A missing settings file is not an error.
func newViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	d := defaultConfig()
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("model", d.Model)
	v.SetDefault("canvas_width", d.CanvasWidth)
	v.SetDefault("draft_retention", d.DraftRetention)
	v.SetDefault("prune_schedule", d.PruneSchedule)
	v.SetDefault("mermaid_ascii_dir", d.MermaidASCIIDir)

	v.SetEnvPrefix("NFSTUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = settingsPath()
	}
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(cfgFile); !os.IsNotExist(statErr) {
			return nil, err
		}
	}
	return v, nil
}

// loadConfig decodes the current viper state.
func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	LogLevelChanged bool
	LayoutChanged   bool
	RestartNeeded   []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.CanvasWidth != new.CanvasWidth {
		d.LayoutChanged = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.LogFormat != new.LogFormat {
		d.RestartNeeded = append(d.RestartNeeded, "log_format")
	}
	if old.Model != new.Model {
		d.RestartNeeded = append(d.RestartNeeded, "model")
	}
	if old.DraftRetention != new.DraftRetention {
		d.RestartNeeded = append(d.RestartNeeded, "draft_retention")
	}
	if old.PruneSchedule != new.PruneSchedule {
		d.RestartNeeded = append(d.RestartNeeded, "prune_schedule")
	}
	return d
}

func pidPath() string {
	return filepath.Join(nfstudioDir(), "nfstudio.pid")
}
