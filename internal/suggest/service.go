package suggest

import (
	"context"
	"log/slog"
	"time"

	"github.com/rendis/nfstudio/pkg/schema"
)

// Result is the outcome of one suggestion round.
type Result struct {
	Pipeline   *schema.Pipeline `json:"pipeline"`
	Suggestion *Suggestion      `json:"suggestion"`
	Raw        string           `json:"raw"`
}

// Service runs prompt, generation, parsing and merge for one goal.
type Service struct {
	gen       Generator
	validator SuggestionValidator
	logger    *slog.Logger
}

// NewService creates a Service. validator may be nil to skip schema checks.
func NewService(gen Generator, validator SuggestionValidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gen: gen, validator: validator, logger: logger}
}

// Suggest makes a single model call; there are no retries. Every failure is
// returned as a SUGGEST_ERROR, except an empty goal which is a VALIDATION_ERROR.
func (s *Service) Suggest(ctx context.Context, goal string, current *schema.Pipeline) (*Result, error) {
	if s.gen == nil {
		return nil, schema.NewError(schema.ErrCodeSuggest, "no generator configured")
	}
	system, user, err := BuildPrompt(goal, current)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := s.gen.Generate(ctx, system, user)
	if err != nil {
		s.logger.WarnContext(ctx, "suggestion request failed", "error", err)
		return nil, schema.NewError(schema.ErrCodeSuggest, "model request failed").WithCause(err)
	}

	sug, err := ParseSuggestion(ctx, raw, s.validator)
	if err != nil {
		s.logger.WarnContext(ctx, "suggestion rejected", "error", err)
		return nil, err
	}

	merged := Merge(current, sug)
	s.logger.InfoContext(ctx, "suggestion applied",
		"params", len(sug.Params),
		"processes", len(sug.Processes),
		"workflow_changed", sug.Workflow != "",
		"duration", time.Since(start))
	return &Result{Pipeline: merged, Suggestion: sug, Raw: raw}, nil
}
