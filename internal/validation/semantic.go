package validation

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rendis/nfstudio/internal/expressions"
	"github.com/rendis/nfstudio/pkg/schema"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateSemantic checks names, uniqueness and param rules.
// Structural shape is already guaranteed by the JSON Schema stage.
func validateSemantic(ctx context.Context, p *schema.Pipeline, rules *expressions.RuleEngines) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	seenParams := make(map[string]int, len(p.Params))
	for i, param := range p.Params {
		path := fmt.Sprintf("params[%d]", i)
		checkName(path+".name", param.Name, result)
		if first, dup := seenParams[param.Name]; dup {
			result.AddError(path+".name", schema.ErrCodeConflict,
				fmt.Sprintf("param %q already declared at params[%d]", param.Name, first))
		} else {
			seenParams[param.Name] = i
		}
		if param.Rule != "" && rules != nil {
			validateParamRule(ctx, p, param, path, rules, result)
		}
	}

	seenProcs := make(map[string]int, len(p.Processes))
	for i := range p.Processes {
		proc := &p.Processes[i]
		path := fmt.Sprintf("processes[%d]", i)
		checkName(path+".name", proc.Name, result)
		if first, dup := seenProcs[proc.Name]; dup {
			result.AddProcessError(proc.Name, path+".name", schema.ErrCodeConflict,
				fmt.Sprintf("process %q already declared at processes[%d]", proc.Name, first))
		} else {
			seenProcs[proc.Name] = i
		}
		validateProcessChannels(proc, path, result)

		if proc.Script == "" {
			result.AddProcessWarning(proc.Name, path+".script", schema.ErrCodeValidation,
				fmt.Sprintf("process %q has an empty script", proc.Name))
		}
	}

	if p.Config.Docker && p.Config.Singularity {
		result.AddWarning("config", schema.ErrCodeValidation,
			"docker and singularity are both enabled; nextflow uses whichever is listed last")
	}

	return result
}

func checkName(path, name string, result *schema.ValidationResult) {
	if !identifierPattern.MatchString(name) {
		result.AddError(path, schema.ErrCodeValidation,
			fmt.Sprintf("%q is not a valid identifier", name))
	}
}

// validateProcessChannels flags duplicate emit names, which would make
// NAME.out.<emit> ambiguous.
func validateProcessChannels(proc *schema.Process, path string, result *schema.ValidationResult) {
	emits := make(map[string]bool, len(proc.Outputs))
	for j, out := range proc.Outputs {
		if out.Emit == "" {
			continue
		}
		if emits[out.Emit] {
			result.AddProcessError(proc.Name, fmt.Sprintf("%s.outputs[%d].emit", path, j), schema.ErrCodeConflict,
				fmt.Sprintf("duplicate emit name %q in process %q", out.Emit, proc.Name))
		}
		emits[out.Emit] = true
	}

	for j, in := range proc.Inputs {
		if in.Emit != "" {
			result.AddProcessWarning(proc.Name, fmt.Sprintf("%s.inputs[%d].emit", path, j), schema.ErrCodeValidation,
				"emit is only meaningful on outputs (ignored)")
		}
	}
}

// validateParamRule evaluates a param's rule against its default value.
// Params without a default have nothing to check until run time.
func validateParamRule(ctx context.Context, p *schema.Pipeline, param schema.Param, path string, rules *expressions.RuleEngines, result *schema.ValidationResult) {
	engine, err := rules.ForName(param.RuleEngine)
	if err != nil {
		result.AddError(path+".rule_engine", schema.CodeOf(err), err.Error())
		return
	}
	if param.Default == nil {
		return
	}

	ok, err := expressions.EvaluateRule(ctx, engine, param.Rule, expressions.RuleData(p, param))
	if err != nil {
		result.AddError(path+".rule", schema.ErrCodeExpression, err.Error())
		return
	}
	if !ok {
		result.AddError(path+".default", schema.ErrCodeValidation,
			fmt.Sprintf("default %v of param %q violates rule %q", param.Default, param.Name, param.Rule))
	}
}
