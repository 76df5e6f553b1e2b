package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/pkg/schema"
)

// processLikePattern matches the conventional upper-case process naming.
// Channel factories and operators (fromPath, collect, view) are lower camel
// case and never flagged.
var processLikePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// validateGraph inspects the workflow block through the same graph the
// visualizer draws. Everything it reports is a warning: the workflow is free
// text and a partial or cyclic graph still renders.
func validateGraph(p *schema.Pipeline) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if strings.TrimSpace(p.Workflow) == "" {
		if len(p.Processes) > 0 {
			result.AddWarning("workflow", schema.ErrCodeValidation,
				"workflow block is empty; no process will run")
		}
		return result
	}

	decls := p.Declarations()
	known := engine.KnownNames(decls)

	for _, name := range engine.UndeclaredCalls(p.Workflow, known) {
		if processLikePattern.MatchString(name) {
			result.AddWarning("workflow", schema.ErrCodeNotFound,
				fmt.Sprintf("workflow calls undeclared process %q", name))
		}
	}

	g := engine.BuildGraph(p.Workflow, decls)
	layering := engine.ComputeLayers(g)
	if len(layering.Unplaced) > 0 {
		result.AddWarning("workflow", schema.ErrCodeCycle,
			fmt.Sprintf("processes %s form or depend on a dependency cycle and cannot be placed",
				strings.Join(layering.Unplaced, ", ")))
	}

	called := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		called[n.ID] = true
	}
	for i, proc := range p.Processes {
		if proc.Name != "" && !called[proc.Name] {
			result.AddProcessWarning(proc.Name, fmt.Sprintf("processes[%d]", i), schema.ErrCodeValidation,
				fmt.Sprintf("process %q is declared but never called", proc.Name))
		}
	}

	return result
}
