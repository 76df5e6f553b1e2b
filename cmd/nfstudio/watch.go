package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/nfstudio/internal/diagram"
	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		format   string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Redraw the workflow graph whenever FILE changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := watcher.New(args[0], debounce, a.logger)
			if err != nil {
				return err
			}
			return a.watch(cmd, args[0], format, w)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "ascii", "output format: ascii or mermaid")
	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce, "quiet period before redrawing")
	return cmd
}

// watch draws once, then again on every debounced change until the context
// ends. Decode and layout failures are reported without stopping the loop.
func (a *app) watch(cmd *cobra.Command, path, format string, w *watcher.Watcher) error {
	if format != "ascii" && format != "mermaid" {
		return fmt.Errorf("watch supports ascii and mermaid, got %q", format)
	}
	ctx := cmd.Context()
	changes, err := w.Start(ctx)
	if err != nil {
		return err
	}

	a.redraw(cmd, path, format)
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			a.logger.Debug("pipeline changed", slog.String("path", path))
			a.redraw(cmd, path, format)
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *app) redraw(cmd *cobra.Command, path, format string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "--- %s @ %s\n", path, time.Now().Format(time.TimeOnly))
	if err := a.drawOnce(cmd.Context(), out, path, format); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}
}

func (a *app) drawOnce(ctx context.Context, out io.Writer, path, format string) error {
	p, err := readPipeline(path)
	if err != nil {
		return err
	}
	rt, err := a.buildStudio(ctx, studioOptions{})
	if err != nil {
		return err
	}
	res, err := rt.studio.Layout(p, engine.Options{})
	if err != nil {
		return err
	}
	model, err := rt.studio.Diagram(p, engine.Options{})
	if err != nil {
		return err
	}

	rendered := diagram.RenderASCIIAuto(model, a.cfg.MermaidASCIIDir)
	if format == "mermaid" {
		rendered = diagram.RenderMermaid(model)
	}
	fmt.Fprintln(out, rendered)
	if w := res.Warning(); w != "" {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}
