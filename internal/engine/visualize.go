package engine

import (
	"fmt"

	"github.com/rendis/nfstudio/pkg/schema"
)

// Visualize runs extraction, inference and layout over workflow source.
// It is a pure function: every call recomputes from scratch. Unexpected
// internal failures are recovered and returned as a LAYOUT_ERROR.
func Visualize(source string, decls []schema.ProcessDeclaration, opts Options) (*Result, error) {
	return visualize(source, decls, opts, Layout)
}

func visualize(source string, decls []schema.ProcessDeclaration, opts Options, layout func(*Graph, Options) *Result) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = schema.NewErrorf(schema.ErrCodeLayout, "layout failed: %v", r).
				WithDetails(map[string]any{"processes": len(decls)})
		}
	}()

	return layout(BuildGraph(source, decls), opts), nil
}

// VisualizePipeline lays out a pipeline's workflow block against its processes.
func VisualizePipeline(p *schema.Pipeline, opts Options) (*Result, error) {
	if p == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "pipeline is nil")
	}
	res, err := Visualize(p.Workflow, p.Declarations(), opts)
	if err != nil {
		return nil, fmt.Errorf("visualize %q: %w", p.Name, err)
	}
	return res, nil
}
