package suggest

import "github.com/rendis/nfstudio/pkg/schema"

// Merge applies s to a copy of current. Params and processes whose name
// already exists are replaced in place; new ones are appended. A non-empty
// workflow or description replaces the existing text.
func Merge(current *schema.Pipeline, s *Suggestion) *schema.Pipeline {
	out := &schema.Pipeline{}
	if current != nil {
		*out = *current
		out.Params = append([]schema.Param(nil), current.Params...)
		out.Processes = append([]schema.Process(nil), current.Processes...)
	}
	if s == nil {
		return out
	}

	for _, param := range s.Params {
		if existing := out.Param(param.Name); existing != nil {
			*existing = param
		} else {
			out.Params = append(out.Params, param)
		}
	}
	for _, proc := range s.Processes {
		if existing := out.Process(proc.Name); existing != nil {
			*existing = proc
		} else {
			out.Processes = append(out.Processes, proc)
		}
	}
	if s.Workflow != "" {
		out.Workflow = s.Workflow
	}
	if s.Description != "" {
		out.Description = s.Description
	}
	return out
}
