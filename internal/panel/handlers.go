package panel

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/pkg/schema"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// --- Request types ---

// layoutRequest carries either a pipeline or a raw workflow with its process
// names. Workflow is decoded loosely: a non-string value lays out as empty.
type layoutRequest struct {
	Pipeline  *schema.Pipeline `json:"pipeline"`
	Workflow  any              `json:"workflow"`
	Processes []string         `json:"processes" validate:"dive,required"`
	Options   engine.Options   `json:"options"`
}

func (r *layoutRequest) check() error {
	if r.Pipeline == nil && r.Workflow == nil && r.Processes == nil {
		return schema.NewError(schema.ErrCodeValidation, "invalid request: one of pipeline, workflow or processes is required")
	}
	return nil
}

// pipeline returns the request pipeline, or an ad-hoc one built from the raw
// workflow text and process names.
func (r *layoutRequest) pipeline() *schema.Pipeline {
	if r.Pipeline != nil {
		return r.Pipeline
	}
	p := &schema.Pipeline{Name: "adhoc", Workflow: engine.SourceText(r.Workflow)}
	for _, name := range r.Processes {
		p.Processes = append(p.Processes, schema.Process{Name: name})
	}
	return p
}

type pipelineRequest struct {
	Pipeline *schema.Pipeline `json:"pipeline" validate:"required"`
}

type suggestRequest struct {
	Goal     string           `json:"goal" validate:"required,max=4000"`
	Pipeline *schema.Pipeline `json:"pipeline" validate:"required"`
}

type draftSuggestRequest struct {
	Goal string `json:"goal" validate:"required,max=4000"`
}

type updateDraftRequest struct {
	Pipeline         *schema.Pipeline `json:"pipeline" validate:"required"`
	ExpectedRevision int64            `json:"expected_revision" validate:"gte=0"`
	Note             string           `json:"note" validate:"max=500"`
}

// --- Decoding ---

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (s *PanelServer) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "invalid JSON: %v", err).WithCause(err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError converts validator errors to a VALIDATION_ERROR listing each field.
func validationError(err error) *schema.NFError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if fe.Param() != "" {
			fields = append(fields, fmt.Sprintf("%s: %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			fields = append(fields, fmt.Sprintf("%s: %s", field, fe.Tag()))
		}
	}
	return schema.NewErrorf(schema.ErrCodeValidation, "invalid request: %s", strings.Join(fields, "; ")).
		WithDetails(map[string]any{"fields": fields}).
		WithCause(err)
}
