package diagram

import "github.com/rendis/nfstudio/internal/engine"

// NodeKind classifies a diagram node by its position in the dependency graph.
type NodeKind string

const (
	NodeKindSource   NodeKind = "source"   // no upstream process
	NodeKindProcess  NodeKind = "process"  // upstream and downstream processes
	NodeKindSink     NodeKind = "sink"     // no downstream process
	NodeKindIsolated NodeKind = "isolated" // no dependencies at all
)

// DiagramModel is the intermediate representation used by all renderers.
// Geometry is copied from the layout result so renderers never lay out again.
type DiagramModel struct {
	Title    string
	Nodes    []*Node
	Edges    []Edge
	Levels   [][]string
	Unplaced []string
	Warning  string
	Width    float64
	Height   float64
}

// Node is one placed process.
type Node struct {
	ID      string
	Label   string
	Kind    NodeKind
	Layer   int
	Details []string // container and resource directives, one per line
	X, Y    float64
	Width   float64
	Height  float64
}

// Edge is a dependency between two placed processes.
type Edge struct {
	From    string
	To      string
	Label   string
	Start   engine.Point
	End     engine.Point
	Control engine.Point
}

// Node returns the node with the given ID, or nil.
func (m *DiagramModel) Node(id string) *Node {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
