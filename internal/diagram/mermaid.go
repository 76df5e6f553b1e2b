package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}
	if model.Warning != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s: %s\n", model.Warning, strings.Join(model.Unplaced, ", ")))
	}

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", edge.Label)
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n",
			mermaidSafeID(edge.From), label, mermaidSafeID(edge.To)))
	}

	if len(model.Nodes) == 0 {
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString("    classDef source fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef process fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef sink fill:#b7791a,stroke:#8a5c14,color:#fff\n")
	b.WriteString("    classDef isolated fill:#6b6b6b,stroke:#4a4a4a,color:#fff\n")

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(node.ID), node.Kind))
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidEscapeLabel(firstLine(node.Label))

	switch node.Kind {
	case NodeKindSource:
		return fmt.Sprintf("%s([%q])", id, label)
	case NodeKindSink:
		return fmt.Sprintf("%s[[%q]]", id, label)
	case NodeKindIsolated:
		return fmt.Sprintf("%s(%q)", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID replaces dots, dashes and spaces with underscores.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

// mermaidEscapeLabel drops characters %q would not protect inside a Mermaid label.
func mermaidEscapeLabel(s string) string {
	return strings.NewReplacer("\"", "'", "|", "/").Replace(s)
}
