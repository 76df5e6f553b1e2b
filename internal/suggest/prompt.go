package suggest

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/rendis/nfstudio/pkg/schema"
)

var systemPromptTemplate = template.Must(template.New("system").Parse(`You are an assistant that designs Nextflow DSL2 pipelines.

Reply with a single JSON object and nothing else. Every field is optional; include only what should change:

{
  "description": "one sentence describing the pipeline",
  "params": [{"name": "reads", "type": "path", "default": "data/*.fq.gz", "description": "..."}],
  "processes": [{
    "name": "UPPER_SNAKE_CASE",
    "container": "image:tag",
    "cpus": 2,
    "memory": "4 GB",
    "time": "1h",
    "inputs":  [{"kind": "path", "name": "reads"}],
    "outputs": [{"kind": "path", "name": "*.html", "emit": "html"}],
    "script": "shell commands"
  }],
  "workflow": "the complete workflow body, one process call per line",
  "explanation": "what you changed and why"
}

Rules:
- Param types: {{.ParamTypes}}. Channel kinds: {{.ChannelKinds}}.
- A process listed with an existing name replaces that process entirely.
- Wire processes by passing NAME.out or NAME.out.<emit> as call arguments.
- When you return "workflow", return the whole block body, not a diff.
- Never call a process you did not declare.`))

// BuildPrompt returns the system prompt describing the reply shape and the
// user prompt carrying the goal and the current draft.
func BuildPrompt(goal string, current *schema.Pipeline) (system, user string, err error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return "", "", schema.NewError(schema.ErrCodeValidation, "goal is required")
	}

	var sb strings.Builder
	if err := systemPromptTemplate.Execute(&sb, map[string]string{
		"ParamTypes": strings.Join([]string{
			string(schema.ParamTypeString), string(schema.ParamTypeInteger), string(schema.ParamTypeNumber),
			string(schema.ParamTypeBoolean), string(schema.ParamTypePath),
		}, ", "),
		"ChannelKinds": strings.Join([]string{
			string(schema.ChannelVal), string(schema.ChannelPath), string(schema.ChannelTuple),
			string(schema.ChannelEnv), string(schema.ChannelStdout),
		}, ", "),
	}); err != nil {
		return "", "", fmt.Errorf("render system prompt: %w", err)
	}

	var ub strings.Builder
	ub.WriteString("# Goal\n")
	ub.WriteString(goal)
	ub.WriteString("\n")
	if current != nil {
		doc, err := json.MarshalIndent(current, "", "  ")
		if err != nil {
			return "", "", fmt.Errorf("encode current pipeline: %w", err)
		}
		ub.WriteString("\n# Current pipeline\n```json\n")
		ub.Write(doc)
		ub.WriteString("\n```\n")
	}
	return sb.String(), ub.String(), nil
}
