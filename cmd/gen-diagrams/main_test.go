package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/internal/expressions"
	"github.com/rendis/nfstudio/internal/validation"
	"github.com/rendis/nfstudio/pkg/schema"
)

const examplesDir = "../../examples"

func loadExample(t *testing.T, name string) *schema.Pipeline {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(examplesDir, name+".yaml"))
	require.NoError(t, err)
	p, err := schema.DecodePipeline(data)
	require.NoError(t, err)
	return p
}

func TestExamplesAreValid(t *testing.T) {
	rules, err := expressions.NewRuleEngines()
	require.NoError(t, err)
	v, err := validation.NewPipelineValidator(rules)
	require.NoError(t, err)

	for _, name := range []string{"rnaseq", "variant-calling", "feedback-loop"} {
		t.Run(name, func(t *testing.T) {
			result := v.Validate(context.Background(), loadExample(t, name))
			assert.Empty(t, result.Errors)
		})
	}
}

func TestExampleLayouts(t *testing.T) {
	tests := []struct {
		name     string
		layers   [][]string
		unplaced []string
	}{
		{
			name:   "rnaseq",
			layers: [][]string{{"FASTQC", "TRIM", "INDEX"}, {"ALIGN"}, {"QUANT"}, {"MULTIQC"}},
		},
		{
			name: "variant-calling",
			layers: [][]string{
				{"MARK_DUPLICATES"}, {"BASE_RECALIBRATOR"}, {"APPLY_BQSR"},
				{"HAPLOTYPE_CALLER"}, {"GENOTYPE_GVCFS"},
			},
		},
		{
			name:     "feedback-loop",
			layers:   [][]string{{"PREPARE"}},
			unplaced: []string{"REFINE", "SCORE"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := loadExample(t, tt.name)
			res, err := engine.VisualizePipeline(p, engine.Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.layers, res.Layers)
			assert.ElementsMatch(t, tt.unplaced, res.Unplaced)
		})
	}
}

func TestGenerate(t *testing.T) {
	out := t.TempDir()
	written, err := generate(context.Background(), examplesDir, out, "")
	require.NoError(t, err)

	for _, name := range []string{"rnaseq", "variant-calling", "feedback-loop"} {
		for _, ext := range []string{".txt", ".mmd", ".svg"} {
			path := filepath.Join(out, name+ext)
			assert.FileExists(t, path)
			assert.Contains(t, written, path)
		}
	}
}

func TestGenerate_NoExamples(t *testing.T) {
	_, err := generate(context.Background(), t.TempDir(), t.TempDir(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pipelines")
}
