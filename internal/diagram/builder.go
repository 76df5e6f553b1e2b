package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/pkg/schema"
)

// Build constructs a DiagramModel from a pipeline and its layout. A nil layout
// is computed with the default geometry.
func Build(p *schema.Pipeline, layout *engine.Result) (*DiagramModel, error) {
	if p == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "diagram: pipeline is nil")
	}
	if layout == nil {
		var err error
		layout, err = engine.VisualizePipeline(p, engine.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("diagram: layout: %w", err)
		}
	}

	upstream := make(map[string]int, len(layout.Nodes))
	downstream := make(map[string]int, len(layout.Nodes))
	for _, e := range layout.Edges {
		downstream[e.Source]++
		upstream[e.Target]++
	}

	nodes := make([]*Node, 0, len(layout.Nodes))
	for _, ln := range layout.Nodes {
		n := &Node{
			ID:     ln.ID,
			Label:  ln.DisplayName,
			Kind:   nodeKind(upstream[ln.ID], downstream[ln.ID]),
			Layer:  ln.Layer,
			X:      ln.X,
			Y:      ln.Y,
			Width:  ln.Width,
			Height: ln.Height,
		}
		if proc := p.Process(ln.ID); proc != nil {
			n.Details = processDetails(proc)
		}
		nodes = append(nodes, n)
	}

	edges := make([]Edge, 0, len(layout.Edges))
	for _, le := range layout.Edges {
		edges = append(edges, Edge{
			From:    le.Source,
			To:      le.Target,
			Start:   le.Start,
			End:     le.End,
			Control: le.Control,
		})
	}

	return &DiagramModel{
		Title:    title(p),
		Nodes:    nodes,
		Edges:    edges,
		Levels:   layout.Layers,
		Unplaced: layout.Unplaced,
		Warning:  layout.Warning(),
		Width:    layout.Width,
		Height:   layout.Height,
	}, nil
}

func nodeKind(in, out int) NodeKind {
	switch {
	case in == 0 && out == 0:
		return NodeKindIsolated
	case in == 0:
		return NodeKindSource
	case out == 0:
		return NodeKindSink
	default:
		return NodeKindProcess
	}
}

// processDetails summarizes the directives worth showing on a node.
func processDetails(proc *schema.Process) []string {
	var details []string
	if proc.Container != "" {
		details = append(details, proc.Container)
	}
	var res []string
	if proc.CPUs > 0 {
		res = append(res, fmt.Sprintf("cpus=%d", proc.CPUs))
	}
	if proc.Memory != "" {
		res = append(res, "mem="+proc.Memory)
	}
	if proc.Time != "" {
		res = append(res, "time="+proc.Time)
	}
	if len(res) > 0 {
		details = append(details, strings.Join(res, " "))
	}
	return details
}

func title(p *schema.Pipeline) string {
	if p.Name != "" {
		return p.Name
	}
	return "Pipeline"
}
