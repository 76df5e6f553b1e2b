package engine

// Layering is the outcome of topological layering over a Graph.
type Layering struct {
	Layers   [][]string     // node IDs per layer, in placement order
	LayerOf  map[string]int // node ID -> layer index, placed nodes only
	Unplaced []string       // nodes that never reached in-degree 0 (cycle members and their descendants)
}

// ComputeLayers assigns layers with Kahn's algorithm processed in waves: every
// node in the queue at the start of a round forms one layer, and successors
// whose in-degree drops to zero form the next. Nodes on or behind a cycle never
// reach zero and are reported as unplaced; that is not an error.
func ComputeLayers(g *Graph) *Layering {
	inDegree := make(map[string]int, len(g.Nodes))
	successors := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range g.Edges {
		if _, ok := inDegree[e.Target]; !ok {
			continue
		}
		if _, ok := inDegree[e.Source]; !ok {
			continue
		}
		inDegree[e.Target]++
		successors[e.Source] = append(successors[e.Source], e.Target)
	}

	// Seed with zero in-degree nodes in node order for deterministic placement.
	wave := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			wave = append(wave, n.ID)
		}
	}

	l := &Layering{LayerOf: make(map[string]int, len(g.Nodes))}
	for len(wave) > 0 {
		layer := len(l.Layers)
		next := make([]string, 0)
		for _, id := range wave {
			l.LayerOf[id] = layer
			for _, succ := range successors[id] {
				inDegree[succ]--
				if inDegree[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		l.Layers = append(l.Layers, wave)
		wave = next
	}

	for _, n := range g.Nodes {
		if _, ok := l.LayerOf[n.ID]; !ok {
			l.Unplaced = append(l.Unplaced, n.ID)
		}
	}
	return l
}
