package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nfstudio/pkg/schema"
)

func procs(names ...string) []schema.Process {
	out := make([]schema.Process, len(names))
	for i, n := range names {
		out[i] = schema.Process{Name: n, Script: "echo " + n}
	}
	return out
}

func TestGraph_CleanChain(t *testing.T) {
	p := &schema.Pipeline{Processes: procs("A", "B"), Workflow: "A(params.in)\nB(A.out)"}
	result := validateGraph(p)
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestGraph_EmptyWorkflow(t *testing.T) {
	result := validateGraph(&schema.Pipeline{Processes: procs("A")})
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "workflow", result.Warnings[0].Path)

	assert.Empty(t, validateGraph(&schema.Pipeline{}).Warnings)
}

func TestGraph_UndeclaredProcessCall(t *testing.T) {
	p := &schema.Pipeline{
		Processes: procs("A"),
		Workflow:  "ch = Channel.fromPath(params.in)\nA(ch)\nTRIM(A.out)\nA.out.view()",
	}
	result := validateGraph(p)
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1, "operators like fromPath and view are not flagged")
	assert.Equal(t, schema.ErrCodeNotFound, result.Warnings[0].Code)
	assert.Contains(t, result.Warnings[0].Message, `"TRIM"`)
}

func TestGraph_Cycle(t *testing.T) {
	p := &schema.Pipeline{Processes: procs("A", "B"), Workflow: "A(B.out)\nB(A.out)"}
	result := validateGraph(p)
	assert.True(t, result.Valid(), "cycles are reported as warnings")
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, schema.ErrCodeCycle, result.Warnings[0].Code)
	assert.Contains(t, result.Warnings[0].Message, "A, B")
}

func TestGraph_NeverCalled(t *testing.T) {
	p := &schema.Pipeline{Processes: procs("A", "UNUSED"), Workflow: "A(x)"}
	result := validateGraph(p)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "processes[1]", result.Warnings[0].Path)
	assert.Equal(t, "UNUSED", result.Warnings[0].Process)
	assert.Contains(t, result.Warnings[0].Message, "never called")
}
