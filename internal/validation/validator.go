package validation

import (
	"context"

	"github.com/rendis/nfstudio/pkg/schema"
)

// Validator checks pipeline documents before they are rendered or stored.
// Uses JSON Schema Draft 2020-12 for structure.
type Validator interface {
	Validate(ctx context.Context, p *schema.Pipeline) *schema.ValidationResult
	ValidatePipeline(ctx context.Context, p *schema.Pipeline) error
	ValidateSuggestion(payload any) error
}
