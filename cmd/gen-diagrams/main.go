// gen-diagrams renders every pipeline under examples/ into docs/assets as
// sample diagrams. Run: go run ./cmd/gen-diagrams
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/nfstudio/internal/diagram"
	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/pkg/schema"
)

func main() {
	examples := flag.String("examples", "examples", "directory of example pipelines")
	outDir := flag.String("out", filepath.Join("docs", "assets"), "output directory")
	flag.Parse()

	home, _ := os.UserHomeDir()
	binDir := filepath.Join(home, ".nfstudio", "bin")

	written, err := generate(context.Background(), *examples, *outDir, binDir)
	for _, path := range written {
		fmt.Println(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "gen-diagrams: %v\n", err)
		os.Exit(1)
	}
}

// generate writes <name>.txt, .mmd, .svg and .png for each *.yaml in dir.
// PNG failures are reported but do not stop the other formats.
func generate(ctx context.Context, dir, outDir, binDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no pipelines in %s", dir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	var written []string
	for _, file := range files {
		paths, err := renderExample(ctx, file, outDir, binDir)
		written = append(written, paths...)
		if err != nil {
			return written, fmt.Errorf("%s: %w", file, err)
		}
	}
	return written, nil
}

func renderExample(ctx context.Context, file, outDir, binDir string) ([]string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	p, err := schema.DecodePipeline(data)
	if err != nil {
		return nil, err
	}
	layout, err := engine.VisualizePipeline(p, engine.Options{})
	if err != nil {
		return nil, err
	}
	model, err := diagram.Build(p, layout)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	svg, err := diagram.RenderSVG(model)
	if err != nil {
		return nil, err
	}
	outputs := []struct {
		ext  string
		body []byte
	}{
		{".txt", []byte(diagram.RenderASCIIAuto(model, binDir))},
		{".mmd", []byte(diagram.RenderMermaid(model))},
		{".svg", []byte(svg)},
	}
	if png, err := diagram.RenderImage(ctx, model); err != nil {
		fmt.Fprintf(os.Stderr, "%s: png skipped: %v\n", base, err)
	} else {
		outputs = append(outputs, struct {
			ext  string
			body []byte
		}{".png", png})
	}

	var written []string
	for _, o := range outputs {
		path := filepath.Join(outDir, base+o.ext)
		if err := os.WriteFile(path, o.body, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if w := layout.Warning(); w != "" {
		fmt.Fprintf(os.Stderr, "%s: %s\n", base, w)
	}
	return written, nil
}
