package validation

import (
	"context"

	"github.com/rendis/nfstudio/internal/expressions"
	"github.com/rendis/nfstudio/pkg/schema"
)

// PipelineValidator orchestrates the three-stage validation pipeline:
// 1. Structural (JSON Schema)
// 2. Semantic (names, uniqueness, param rules)
// 3. Graph (undeclared calls, cycles, unused processes; warnings only)
type PipelineValidator struct {
	jsonSchema *JSONSchemaValidator
	rules      *expressions.RuleEngines
}

var _ Validator = (*PipelineValidator)(nil)

// NewPipelineValidator creates a PipelineValidator.
// rules may be nil to skip param rule evaluation.
func NewPipelineValidator(rules *expressions.RuleEngines) (*PipelineValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &PipelineValidator{jsonSchema: jsv, rules: rules}, nil
}

// Validate runs the full pipeline and returns an aggregated result.
// Structural errors short-circuit: semantic and graph stages are skipped.
func (pv *PipelineValidator) Validate(ctx context.Context, p *schema.Pipeline) *schema.ValidationResult {
	if p == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "pipeline is nil")
		return r
	}

	result := validateStructural(pv.jsonSchema, p)
	if !result.Valid() {
		return result
	}

	result.Merge(validateSemantic(ctx, p, pv.rules))
	result.Merge(validateGraph(p))
	return result
}

// ValidatePipeline returns the aggregated result as an error, nil when valid.
func (pv *PipelineValidator) ValidatePipeline(ctx context.Context, p *schema.Pipeline) error {
	return pv.Validate(ctx, p).ToError()
}

// ValidateSuggestion delegates to the underlying JSONSchemaValidator.
func (pv *PipelineValidator) ValidateSuggestion(payload any) error {
	return pv.jsonSchema.ValidateSuggestion(payload)
}

// validateStructural wraps JSONSchemaValidator.ValidatePipeline, converting
// its error output into ValidationResult.
func validateStructural(v *JSONSchemaValidator, p *schema.Pipeline) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	err := v.ValidatePipeline(p)
	if err == nil {
		return result
	}

	nfErr, ok := err.(*schema.NFError)
	if !ok {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}

	if nfErr.Details != nil {
		if violations, ok := nfErr.Details["violations"].([]string); ok {
			for _, v := range violations {
				result.AddError("/", schema.ErrCodeValidation, v)
			}
			return result
		}
	}

	result.AddError("/", nfErr.Code, nfErr.Message)
	return result
}
