package suggest

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rendis/nfstudio/internal/expressions"
	"github.com/rendis/nfstudio/pkg/schema"
)

// unwrapProgram lifts {"pipeline": {...}} and {"suggestion": {...}} replies to
// the top level, carrying a sibling explanation along.
const unwrapProgram = `(.explanation // null) as $why
| (if has("pipeline") then .pipeline
   elif has("suggestion") then .suggestion
   else . end)
| if $why != null and (has("explanation") | not) then . + {explanation: $why} else . end`

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")

var jq = expressions.NewGoJQEngine()

// SuggestionValidator checks a decoded suggestion payload.
type SuggestionValidator interface {
	ValidateSuggestion(payload any) error
}

// Suggestion is a partial pipeline proposed by the model.
type Suggestion struct {
	Description string           `json:"description,omitempty"`
	Params      []schema.Param   `json:"params,omitempty"`
	Processes   []schema.Process `json:"processes,omitempty"`
	Workflow    string           `json:"workflow,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
}

// ParseSuggestion extracts the JSON object from a model reply (fenced or bare),
// unwraps it, validates it when v is non-nil and decodes it.
func ParseSuggestion(ctx context.Context, text string, v SuggestionValidator) (*Suggestion, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, schema.NewError(schema.ErrCodeSuggest, "reply contains no JSON object").
			WithDetails(map[string]any{"reply": truncate(text, 200)})
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, schema.NewError(schema.ErrCodeSuggest, "reply is not a JSON object").WithCause(err)
	}

	unwrapped, err := jq.Evaluate(ctx, unwrapProgram, obj)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeSuggest, "unwrap reply").WithCause(err)
	}
	payload, ok := unwrapped.(map[string]any)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeSuggest, "suggestion must be a JSON object, got %T", unwrapped)
	}
	// Name changes are not the model's call.
	delete(payload, "name")

	if v != nil {
		if err := v.ValidateSuggestion(payload); err != nil {
			return nil, schema.NewError(schema.ErrCodeSuggest, "suggestion failed validation").WithCause(err)
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeSuggest, "re-encode suggestion").WithCause(err)
	}
	var s Suggestion
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, schema.NewError(schema.ErrCodeSuggest, "decode suggestion").WithCause(err)
	}
	return &s, nil
}

// extractJSON returns the first fenced block, or the span from the first "{"
// to the last "}".
func extractJSON(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		if body := strings.TrimSpace(m[1]); strings.HasPrefix(body, "{") {
			return body
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
