package expressions

import (
	"context"
	"testing"

	"github.com/rendis/nfstudio/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCELEngine(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	assert.Equal(t, "cel", e.Name())
}

func TestCEL_ParamRules(t *testing.T) {
	tests := []struct {
		name string
		rule string
		data map[string]any
		want any
	}{
		{"int bound", "value >= 1", map[string]any{"value": 4}, true},
		{"string size", "size(value) > 3", map[string]any{"value": "hg38"}, true},
		{"string prefix", `value.startsWith("gs://")`, map[string]any{"value": "s3://x"}, false},
		{"name access", `name == "genome"`, map[string]any{"name": "genome"}, true},
		{"params access", `params.outdir != ""`, map[string]any{"params": map[string]any{"outdir": "results"}}, true},
		{"missing params default to empty map", `!("outdir" in params)`, map[string]any{}, true},
	}

	e, err := NewCELEngine()
	require.NoError(t, err)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := e.Evaluate(context.Background(), tc.rule, tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestCEL_Errors(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = e.Evaluate(ctx, "", nil)
	assert.Equal(t, schema.ErrCodeExpression, schema.CodeOf(err))

	_, err = e.Evaluate(ctx, "undefined_var > 1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile error")

	_, err = e.Evaluate(ctx, "value / 0 > 1", map[string]any{"value": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation failed")
}

func TestCEL_CachesPrograms(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := e.Evaluate(context.Background(), "value == 1", map[string]any{"value": 1})
		require.NoError(t, err)
	}
	assert.Len(t, e.cache, 1)
}
