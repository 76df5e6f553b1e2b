package expressions

import (
	"context"
	"fmt"

	"github.com/rendis/nfstudio/pkg/schema"
)

// Engine evaluates expressions against a data map.
// Three implementations: Expr and CEL (param rules), GoJQ (payload transforms).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// RuleEngines resolves the engine a param rule names. The zero name selects expr.
type RuleEngines struct {
	Expr *ExprEngine
	CEL  *CELEngine
}

// NewRuleEngines creates both rule engines.
func NewRuleEngines() (*RuleEngines, error) {
	celEngine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &RuleEngines{Expr: NewExprEngine(), CEL: celEngine}, nil
}

// ForName returns the engine for a rule_engine value.
func (r *RuleEngines) ForName(name string) (Engine, error) {
	switch name {
	case "", "expr":
		return r.Expr, nil
	case "cel":
		return r.CEL, nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown rule engine %q (want expr or cel)", name)
	}
}

// RuleData builds the evaluation environment for a param rule:
// value (the param default), name (the param name) and params (all defaults by name).
func RuleData(p *schema.Pipeline, param schema.Param) map[string]any {
	params := make(map[string]any, len(p.Params))
	for _, other := range p.Params {
		params[other.Name] = other.Default
	}
	return map[string]any{
		"value":  param.Default,
		"name":   param.Name,
		"params": params,
	}
}

// EvaluateRule runs a boolean rule and reports whether it holds.
func EvaluateRule(ctx context.Context, engine Engine, rule string, data map[string]any) (bool, error) {
	out, err := engine.Evaluate(ctx, rule, data)
	if err != nil {
		return false, err
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, schema.NewErrorf(schema.ErrCodeExpression,
			"%s rule %q must evaluate to a boolean, got %s", engine.Name(), rule, fmt.Sprintf("%T", out))
	}
	return ok, nil
}
