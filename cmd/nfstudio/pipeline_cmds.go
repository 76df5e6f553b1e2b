package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rendis/nfstudio/internal/codegen"
	"github.com/rendis/nfstudio/internal/diagram"
	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/pkg/schema"
)

func newLayoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "layout FILE",
		Short: "Print the workflow graph layout as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPipeline(args[0])
			if err != nil {
				return err
			}
			rt, err := a.buildStudio(cmd.Context(), studioOptions{})
			if err != nil {
				return err
			}
			res, err := rt.studio.Layout(p, engine.Options{})
			if err != nil {
				return err
			}
			if w := res.Warning(); w != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a pipeline file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPipeline(args[0])
			if err != nil {
				return err
			}
			rt, err := a.buildStudio(cmd.Context(), studioOptions{})
			if err != nil {
				return err
			}
			result := rt.studio.Validate(cmd.Context(), p)
			printIssues(cmd.OutOrStdout(), result)
			if err := result.ToError(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func printIssues(w io.Writer, result *schema.ValidationResult) {
	for _, issue := range result.Errors {
		fmt.Fprintf(w, "error   %s: %s (%s)\n", issue.Path, issue.Message, issue.Code)
	}
	for _, issue := range result.Warnings {
		fmt.Fprintf(w, "warning %s: %s (%s)\n", issue.Path, issue.Message, issue.Code)
	}
}

func newRenderCmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render main.nf and nextflow.config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPipeline(args[0])
			if err != nil {
				return err
			}
			rt, err := a.buildStudio(cmd.Context(), studioOptions{})
			if err != nil {
				return err
			}
			art, result, err := rt.studio.Render(cmd.Context(), p)
			printIssues(cmd.ErrOrStderr(), result)
			if err != nil {
				return err
			}

			if outDir == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "// main.nf\n%s\n// nextflow.config\n%s", art.Script, art.Config)
				return nil
			}
			paths, err := codegen.WriteFiles(outDir, p)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write main.nf and nextflow.config into this directory")
	return cmd
}

// diagramFormats lists the accepted --format values.
var diagramFormats = []string{"ascii", "mermaid", "svg", "png"}

func newDiagramCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "diagram FILE",
		Short: "Draw the workflow graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPipeline(args[0])
			if err != nil {
				return err
			}
			rt, err := a.buildStudio(cmd.Context(), studioOptions{})
			if err != nil {
				return err
			}
			model, err := rt.studio.Diagram(p, engine.Options{})
			if err != nil {
				return err
			}
			data, err := a.renderDiagram(cmd, model, format)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "ascii", "output format: ascii, mermaid, svg, png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func (a *app) renderDiagram(cmd *cobra.Command, model *diagram.DiagramModel, format string) ([]byte, error) {
	switch format {
	case "ascii":
		return []byte(diagram.RenderASCIIAuto(model, a.cfg.MermaidASCIIDir)), nil
	case "mermaid":
		return []byte(diagram.RenderMermaid(model)), nil
	case "svg":
		svg, err := diagram.RenderSVG(model)
		return []byte(svg), err
	case "png":
		return diagram.RenderImage(cmd.Context(), model)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown format %q (want one of %v)", format, diagramFormats)
	}
}

func newSuggestCmd(a *app) *cobra.Command {
	var (
		goal  string
		write bool
	)
	cmd := &cobra.Command{
		Use:   "suggest FILE",
		Short: "Ask the model for changes toward a goal",
		Long:  "Ask the model for pipeline changes toward a goal. Requires GEMINI_API_KEY (a .env file in the working directory is read).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPipeline(args[0])
			if err != nil {
				return err
			}
			rt, err := a.buildStudio(cmd.Context(), studioOptions{})
			if err != nil {
				return err
			}
			res, err := rt.studio.Suggest(cmd.Context(), goal, p)
			if err != nil {
				return err
			}
			if res.Suggestion != nil && res.Suggestion.Explanation != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\n\n", res.Suggestion.Explanation)
			}
			out, err := schema.EncodePipelineYAML(res.Pipeline)
			if err != nil {
				return err
			}
			if write {
				return os.WriteFile(args[0], out, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&goal, "goal", "g", "", "what the pipeline should do differently")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "overwrite FILE with the merged pipeline (YAML)")
	_ = cmd.MarkFlagRequired("goal")
	return cmd
}
