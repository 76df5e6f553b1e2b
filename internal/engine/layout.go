package engine

import (
	"fmt"
	"math"
)

// Default geometry, in canvas units.
const (
	DefaultCanvasWidth = 800
	DefaultNodeWidth   = 160
	DefaultNodeHeight  = 50
	DefaultHGap        = 40
	DefaultVGap        = 60
	DefaultMinMargin   = 20
	DefaultBow         = 0.25
	DefaultStraightBow = 30
)

// Options controls layout geometry. Zero fields take the defaults.
type Options struct {
	CanvasWidth float64 `json:"canvas_width,omitempty"`
	NodeWidth   float64 `json:"node_width,omitempty"`
	NodeHeight  float64 `json:"node_height,omitempty"`
	HGap        float64 `json:"h_gap,omitempty"`
	VGap        float64 `json:"v_gap,omitempty"`
	MinMargin   float64 `json:"min_margin,omitempty"`
	Bow         float64 `json:"bow,omitempty"`          // control-point offset per unit of horizontal displacement
	StraightBow float64 `json:"straight_bow,omitempty"` // sideways offset when target is directly below source
}

// DefaultOptions returns the default layout geometry.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	def := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	def(&o.CanvasWidth, DefaultCanvasWidth)
	def(&o.NodeWidth, DefaultNodeWidth)
	def(&o.NodeHeight, DefaultNodeHeight)
	def(&o.HGap, DefaultHGap)
	def(&o.VGap, DefaultVGap)
	def(&o.MinMargin, DefaultMinMargin)
	def(&o.Bow, DefaultBow)
	def(&o.StraightBow, DefaultStraightBow)
	return o
}

// Point is a 2-D canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a placed process node.
type Node struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Layer       int     `json:"layer"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

// BottomCenter is where outgoing edges start.
func (n *Node) BottomCenter() Point {
	return Point{X: n.X + n.Width/2, Y: n.Y + n.Height}
}

// TopCenter is where incoming edges end.
func (n *Node) TopCenter() Point {
	return Point{X: n.X + n.Width/2, Y: n.Y}
}

// Edge is a placed dependency drawn as a quadratic curve Start -> Control -> End.
type Edge struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Start   Point  `json:"start"`
	End     Point  `json:"end"`
	Control Point  `json:"control"`
}

// Result is a laid-out graph ready for a rendering surface.
type Result struct {
	Nodes       []Node     `json:"nodes"`
	Edges       []Edge     `json:"edges"`
	Layers      [][]string `json:"layers"`
	Unplaced    []string   `json:"unplaced,omitempty"`
	Width       float64    `json:"width"`  // bounding box of placed nodes plus margin
	Height      float64    `json:"height"` // bounding box of placed nodes plus margin
	CanvasWidth float64    `json:"canvas_width"`
}

// Node returns the placed node with the given ID, or nil.
func (r *Result) Node(id string) *Node {
	for i := range r.Nodes {
		if r.Nodes[i].ID == id {
			return &r.Nodes[i]
		}
	}
	return nil
}

// Warning returns the soft warning for unplaced processes, or "" when every
// called process was placed.
func (r *Result) Warning() string {
	switch n := len(r.Unplaced); n {
	case 0:
		return ""
	case 1:
		return "1 process could not be placed (dependency cycle)"
	default:
		return fmt.Sprintf("%d processes could not be placed (dependency cycle)", n)
	}
}

// Layout layers g and assigns node coordinates and edge curves.
func Layout(g *Graph, opts Options) *Result {
	opts = opts.withDefaults()
	layering := ComputeLayers(g)

	display := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		display[n.ID] = n.DisplayName
	}

	res := &Result{
		Nodes:       make([]Node, 0, len(layering.LayerOf)),
		Edges:       make([]Edge, 0, len(g.Edges)),
		Layers:      layering.Layers,
		Unplaced:    layering.Unplaced,
		CanvasWidth: opts.CanvasWidth,
	}

	index := make(map[string]int, len(layering.LayerOf))
	for li, layer := range layering.Layers {
		n := float64(len(layer))
		rowWidth := n*opts.NodeWidth + (n-1)*opts.HGap
		startX := (opts.CanvasWidth - rowWidth) / 2
		if startX < 0 {
			startX = opts.MinMargin
		}
		y := opts.VGap + float64(li)*(opts.NodeHeight+opts.VGap)

		for i, id := range layer {
			index[id] = len(res.Nodes)
			res.Nodes = append(res.Nodes, Node{
				ID:          id,
				DisplayName: display[id],
				Layer:       li,
				X:           startX + float64(i)*(opts.NodeWidth+opts.HGap),
				Y:           y,
				Width:       opts.NodeWidth,
				Height:      opts.NodeHeight,
			})
		}
	}

	for _, e := range g.Edges {
		si, okS := index[e.Source]
		ti, okT := index[e.Target]
		if !okS || !okT {
			continue // an endpoint sits on a cycle
		}
		start := res.Nodes[si].BottomCenter()
		end := res.Nodes[ti].TopCenter()
		res.Edges = append(res.Edges, Edge{
			ID:      e.ID(),
			Source:  e.Source,
			Target:  e.Target,
			Start:   start,
			End:     end,
			Control: controlPoint(start, end, opts),
		})
	}

	for _, n := range res.Nodes {
		res.Width = math.Max(res.Width, n.X+n.Width+opts.MinMargin)
		res.Height = math.Max(res.Height, n.Y+n.Height+opts.VGap)
	}
	return res
}

// controlPoint bows the curve sideways by an amount proportional to the
// horizontal displacement, toward the side the target lies on. Straight-down
// edges get a fixed offset so stacked same-column curves stay distinguishable.
func controlPoint(start, end Point, opts Options) Point {
	dx := end.X - start.X
	mid := Point{X: (start.X + end.X) / 2, Y: (start.Y + end.Y) / 2}

	if dx == 0 {
		mid.X += opts.StraightBow
	} else {
		mid.X += dx * opts.Bow
	}
	return mid
}
