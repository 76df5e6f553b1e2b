package engine

import (
	"regexp"

	"github.com/rendis/nfstudio/pkg/schema"
)

var (
	// callPattern matches a flat call: identifier, then "(" and everything up to
	// the first ")". Nested parentheses truncate the argument text.
	callPattern = regexp.MustCompile(`\b([A-Za-z_]\w*)\(([^)]*)\)`)

	// outputRefPattern matches NAME.out, optionally followed by .channel.
	outputRefPattern = regexp.MustCompile(`\b([A-Za-z_]\w*)\.out(?:\.([A-Za-z_]\w*))?\b`)
)

// CallInstance is one textual occurrence of a recognized process call.
type CallInstance struct {
	ProcessName   string `json:"process_name"`
	SequenceIndex int    `json:"sequence_index"`
	RawArguments  string `json:"raw_arguments"`
}

// GraphNode is one distinct called process.
type GraphNode struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// GraphEdge is a dependency inferred from an output reference: Source feeds Target.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ID returns the edge identifier "source->target".
func (e GraphEdge) ID() string {
	return e.Source + "->" + e.Target
}

// Graph is the unlaid-out dependency graph derived from workflow source.
type Graph struct {
	Calls []CallInstance `json:"calls"`
	Nodes []GraphNode    `json:"nodes"`
	Edges []GraphEdge    `json:"edges"`
}

// KnownNames builds the lookup set of declared process names. Empty names are skipped.
func KnownNames(decls []schema.ProcessDeclaration) map[string]bool {
	known := make(map[string]bool, len(decls))
	for _, d := range decls {
		if d.Name != "" {
			known[d.Name] = true
		}
	}
	return known
}

// SourceText returns v when it is a string and "" otherwise. Callers decoding
// loosely typed input (JSON, MCP arguments) use it so a non-textual workflow
// yields an empty graph instead of an error.
func SourceText(v any) string {
	s, _ := v.(string)
	return s
}

// ExtractCalls scans source for calls to known processes in left-to-right order.
// Calls to unknown identifiers are discarded.
func ExtractCalls(source string, known map[string]bool) []CallInstance {
	if source == "" || len(known) == 0 {
		return nil
	}

	var calls []CallInstance
	for _, m := range callPattern.FindAllStringSubmatch(source, -1) {
		name := m[1]
		if !known[name] {
			continue
		}
		calls = append(calls, CallInstance{
			ProcessName:   name,
			SequenceIndex: len(calls),
			RawArguments:  m[2],
		})
	}
	return calls
}

// InferEdges turns output references inside call arguments into dependency edges.
// References to unknown processes and self-references are ignored; the first
// discovery of a (source, target) pair wins.
func InferEdges(calls []CallInstance, known map[string]bool) []GraphEdge {
	seen := make(map[GraphEdge]bool)
	var edges []GraphEdge

	for _, c := range calls {
		for _, m := range outputRefPattern.FindAllStringSubmatch(c.RawArguments, -1) {
			src := m[1]
			if !known[src] || src == c.ProcessName {
				continue
			}
			e := GraphEdge{Source: src, Target: c.ProcessName}
			if seen[e] {
				continue
			}
			seen[e] = true
			edges = append(edges, e)
		}
	}
	return edges
}

// BuildGraph extracts calls from source and derives one node per distinct called
// process (in first-call order) plus the inferred edges.
func BuildGraph(source string, decls []schema.ProcessDeclaration) *Graph {
	known := KnownNames(decls)
	calls := ExtractCalls(source, known)

	g := &Graph{Calls: calls}
	placed := make(map[string]bool, len(calls))
	for _, c := range calls {
		if placed[c.ProcessName] {
			continue
		}
		placed[c.ProcessName] = true
		g.Nodes = append(g.Nodes, GraphNode{ID: c.ProcessName, DisplayName: c.ProcessName})
	}
	// A referenced process that is declared but never called has no node, so
	// edges out of it are dropped rather than left dangling. Counting them
	// toward in-degree would strand the target outside every layer; dropping
	// them places it as a root instead.
	for _, e := range InferEdges(calls, known) {
		if placed[e.Source] {
			g.Edges = append(g.Edges, e)
		}
	}
	return g
}

// UndeclaredCalls returns the distinct call identifiers in source that are not
// in known, in first-occurrence order.
func UndeclaredCalls(source string, known map[string]bool) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range callPattern.FindAllStringSubmatch(source, -1) {
		name := m[1]
		if known[name] || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
