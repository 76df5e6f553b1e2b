package expressions

import (
	"context"
	"sync"

	"github.com/itchyny/gojq"
	"github.com/rendis/nfstudio/pkg/schema"
)

// GoJQEngine reshapes loosely structured JSON, such as model replies, into the
// pipeline document shape. Compiled programs are cached; safe for concurrent use.
type GoJQEngine struct {
	cache sync.Map // expression -> *gojq.Code
}

// NewGoJQEngine creates a GoJQ engine.
func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{}
}

func (e *GoJQEngine) Name() string { return "jq" }

// Evaluate runs expression against data. Zero outputs yield nil, one output is
// returned as is, and several are collected into []any.
func (e *GoJQEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	out, err := e.Stream(ctx, expression, data)
	if err != nil {
		return nil, err
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}

// Stream runs expression against data and returns every output in order.
// The first runtime error aborts the run.
func (e *GoJQEngine) Stream(ctx context.Context, expression string, data map[string]any) ([]any, error) {
	code, err := e.compile(expression)
	if err != nil {
		return nil, err
	}

	var out []any
	iter := code.RunWithContext(ctx, data)
	for {
		v, ok := iter.Next()
		if !ok {
			return out, nil
		}
		if err, isErr := v.(error); isErr {
			return nil, jqError("evaluation failed", expression, err)
		}
		out = append(out, v)
	}
}

func (e *GoJQEngine) compile(expression string) (*gojq.Code, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty jq expression")
	}
	if code, ok := e.cache.Load(expression); ok {
		return code.(*gojq.Code), nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, jqError("parse error", expression, err)
	}
	// An empty environ keeps $ENV from leaking process variables into replies.
	code, err := gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, jqError("compile error", expression, err)
	}
	actual, _ := e.cache.LoadOrStore(expression, code)
	return actual.(*gojq.Code), nil
}

func jqError(what, expression string, err error) *schema.NFError {
	return schema.NewErrorf(schema.ErrCodeExpression, "jq %s in %q: %s", what, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

var _ Engine = (*GoJQEngine)(nil)
