package main

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rendis/nfstudio/internal/logging"
)

// app carries state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	cfgFile  string
	v        *viper.Viper
	cfg      Config
	logger   *slog.Logger
	logLevel *slog.LevelVar
}

func newRootCmd() *cobra.Command {
	a := &app{logLevel: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:           "nfstudio",
		Short:         "Edit, lay out and render Nextflow pipelines",
		Long:          "nfstudio lays out Nextflow workflow graphs, validates pipelines, renders main.nf and nextflow.config, and serves drafts over HTTP and MCP.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ~/.nfstudio/settings.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.Float64("canvas-width", 0, "layout canvas width in pixels")
	pf.String("db-path", "", "draft database path")

	root.AddCommand(
		newLayoutCmd(a),
		newValidateCmd(a),
		newRenderCmd(a),
		newDiagramCmd(a),
		newSuggestCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newToolsCmd(a),
		newVersionCmd(),
	)
	return root
}

// init loads .env, builds the config and the logger.
func (a *app) init(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	v, err := newViper(a.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	for key, flag := range map[string]string{
		"log_level":    "log-level",
		"log_format":   "log-format",
		"canvas_width": "canvas-width",
		"db_path":      "db-path",
		"listen_addr":  "listen-addr",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	a.v = v

	if a.cfg, err = loadConfig(v); err != nil {
		return err
	}
	a.logger, err = logging.New(logging.Options{
		Level:    a.cfg.LogLevel,
		Format:   a.cfg.LogFormat,
		Writer:   cmd.ErrOrStderr(),
		LevelVar: a.logLevel,
	})
	return err
}
