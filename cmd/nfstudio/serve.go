package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/rendis/nfstudio/internal/logging"
	"github.com/rendis/nfstudio/internal/panel"
	"github.com/rendis/nfstudio/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the draft API and event streams over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ln, err := net.Listen("tcp", a.cfg.ListenAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", a.cfg.ListenAddr, err)
			}
			return a.serve(cmd.Context(), ln)
		},
	}
	cmd.Flags().String("listen-addr", "", "TCP listen address (overrides listen_addr)")
	return cmd
}

// serve runs the panel on ln until ctx ends. The draft janitor runs alongside
// and settings changes are applied live where possible.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	rt, err := a.buildStudio(ctx, studioOptions{withStore: true, withHub: true})
	if err != nil {
		ln.Close()
		return err
	}
	defer rt.Close()

	janitor := scheduler.NewJanitor(rt.store, a.cfg.PruneSchedule, a.cfg.DraftRetention, a.logger)
	if err := janitor.Start(ctx); err != nil {
		ln.Close()
		return err
	}
	defer janitor.Stop()

	swapper := newHandlerSwapper(a.panelHandler(rt))
	srv := &http.Server{
		Handler:           swapper,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if err := writePIDFile(); err != nil {
		a.logger.Warn("pid file not written", slog.String("error", err.Error()))
	}
	defer os.Remove(pidPath())

	var reloadMu sync.Mutex
	reload := func(reason string) {
		reloadMu.Lock()
		defer reloadMu.Unlock()
		a.applyConfig(ctx, rt, swapper, reason)
	}
	a.v.OnConfigChange(func(fsnotify.Event) { reload("settings file changed") })
	a.v.WatchConfig()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				if err := a.v.ReadInConfig(); err != nil {
					a.logger.Warn("reread settings failed", slog.String("error", err.Error()))
				}
				reload("SIGHUP")
			case <-ctx.Done():
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	a.logger.Info("nfstudio serving", slog.String("addr", ln.Addr().String()), slog.String("db", a.cfg.DBPath))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *app) panelHandler(rt *studioRuntime) http.Handler {
	return panel.NewPanelServer(panel.PanelDeps{Studio: rt.studio, Logger: a.logger}).Handler()
}

// applyConfig reloads settings and applies what can change without a restart:
// the log level in place, and layout geometry by rebuilding the studio and
// swapping the handler.
func (a *app) applyConfig(ctx context.Context, rt *studioRuntime, swapper *handlerSwapper, reason string) {
	next, err := loadConfig(a.v)
	if err != nil {
		a.logger.Error("config reload failed", slog.String("reason", reason), slog.String("error", err.Error()))
		return
	}
	diff := diffConfigs(a.cfg, next)
	prev := a.cfg
	a.cfg = next

	if diff.LogLevelChanged {
		level, err := logging.ParseLevel(next.LogLevel)
		if err != nil {
			a.logger.Warn("ignoring log level", slog.String("value", next.LogLevel), slog.String("error", err.Error()))
			a.cfg.LogLevel = prev.LogLevel
		} else {
			a.logLevel.Set(level)
			a.logger.Info("log level changed", slog.String("level", level.String()))
		}
	}
	if diff.LayoutChanged {
		if err := a.rebuild(ctx, rt); err != nil {
			a.logger.Error("studio rebuild failed", slog.String("error", err.Error()))
			a.cfg.CanvasWidth = prev.CanvasWidth
		} else {
			swapper.Swap(a.panelHandler(rt))
			a.logger.Info("layout settings applied", slog.Float64("canvas_width", next.CanvasWidth))
		}
	}
	if len(diff.RestartNeeded) > 0 {
		a.logger.Warn("settings changed that need a restart", slog.Any("fields", diff.RestartNeeded))
	}
}

func writePIDFile() error {
	if err := os.MkdirAll(nfstudioDir(), 0o700); err != nil {
		return err
	}
	return os.WriteFile(pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}
