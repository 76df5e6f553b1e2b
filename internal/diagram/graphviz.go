package diagram

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// RenderImage renders a DiagramModel as a PNG image using graphviz.
// Unplaced processes are drawn dashed inside their own cluster.
func RenderImage(ctx context.Context, model *DiagramModel) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, node := range model.Nodes {
		gvNode, nErr := graph.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", node.ID, nErr)
		}
		gvNode.SetLabel(nodeImageLabel(node))
		applyNodeStyle(gvNode, node.Kind)
		gvNodes[node.ID] = gvNode
	}

	if len(model.Unplaced) > 0 {
		sub, subErr := graph.CreateSubGraphByName("cluster_unplaced")
		if subErr != nil {
			return nil, fmt.Errorf("diagram: create unplaced cluster: %w", subErr)
		}
		sub.SetLabel(model.Warning)
		sub.SetStyle(cgraph.DashedGraphStyle)
		for _, id := range model.Unplaced {
			n, nErr := sub.CreateNodeByName(id)
			if nErr != nil {
				continue
			}
			n.SetShape(cgraph.BoxShape)
			n.SetStyle(cgraph.DashedNodeStyle)
			n.SetFontColor("#888888")
		}
	}

	for _, edge := range model.Edges {
		fromGV, toGV := gvNodes[edge.From], gvNodes[edge.To]
		if fromGV == nil || toGV == nil {
			continue
		}
		e, eErr := graph.CreateEdgeByName(edge.From+"->"+edge.To, fromGV, toGV)
		if eErr == nil && edge.Label != "" {
			e.SetLabel(edge.Label)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render PNG: %w", err)
	}

	return buf.Bytes(), nil
}

func nodeImageLabel(node *Node) string {
	lines := append([]string{firstLine(node.Label)}, node.Details...)
	return strings.Join(lines, "\n")
}

// applyNodeStyle sets shape and fill by node kind.
func applyNodeStyle(gvNode *cgraph.Node, kind NodeKind) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	gvNode.SetFontColor("white")
	switch kind {
	case NodeKindSource:
		gvNode.SetShape(cgraph.EllipseShape)
		gvNode.SetFillColor("#1a5276")
	case NodeKindSink:
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetFillColor("#b7791a")
	case NodeKindIsolated:
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetFillColor("#6b6b6b")
	default:
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetFillColor("#2d6a2d")
	}
}
