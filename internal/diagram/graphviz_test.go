package diagram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertPNG(t *testing.T, png []byte) {
	t.Helper()
	require.True(t, len(png) > 8, "PNG should be larger than header")
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestRenderImage(t *testing.T) {
	tests := []struct {
		name  string
		model *DiagramModel
	}{
		{"linear", mustBuild(t, linearPipeline())},
		{"diamond", mustBuild(t, diamondPipeline())},
		{"cycle", mustBuild(t, cyclePipeline())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			png, err := RenderImage(context.Background(), tt.model)
			require.NoError(t, err)
			assertPNG(t, png)
		})
	}
}

func TestNodeImageLabel(t *testing.T) {
	m := mustBuild(t, linearPipeline())
	assert.Equal(t, "A\nbiocontainers/fastqc:0.12.1\ncpus=2 mem=4 GB", nodeImageLabel(m.Node("A")))
	assert.Equal(t, "B", nodeImageLabel(m.Node("B")))
}
