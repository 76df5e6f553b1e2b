package codegen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rendis/nfstudio/pkg/schema"
)

func TestGroovyLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"plain", "'plain'"},
		{"it's", `'it\'s'`},
		{`C:\data`, `'C:\\data'`},
		{true, "true"},
		{42, "42"},
		{int64(7), "7"},
		{2.5, "2.5"},
		{float64(4), "4"},
		{json.Number("10"), "10"},
		{[]any{"a", 1}, "['a', 1]"},
		{map[string]any{"b": 2, "a": "x"}, "[a: 'x', b: 2]"},
		{map[string]any{}, "[:]"},
		{map[string]any{"max-cpus": 8, "queue": "short"}, "['max-cpus': 8, queue: 'short']"},
		{uint8(3), "'3'"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, groovyLiteral(tc.in), "%#v", tc.in)
	}
}

func TestSettingLiteral(t *testing.T) {
	assert.Equal(t, "4", settingLiteral("4"))
	assert.Equal(t, "0.5", settingLiteral("0.5"))
	assert.Equal(t, "true", settingLiteral("true"))
	assert.Equal(t, "'8 GB'", settingLiteral("8 GB"))
}

func TestChannelDecl(t *testing.T) {
	tests := []struct {
		in   schema.Channel
		want string
	}{
		{schema.Channel{Name: "sample_id"}, "val sample_id"},
		{schema.Channel{Kind: schema.ChannelPath, Name: "reads"}, "path reads"},
		{schema.Channel{Kind: schema.ChannelPath, Name: "${id}.bam", Emit: "bam"}, `path "${id}.bam", emit: bam`},
		{schema.Channel{Kind: schema.ChannelTuple, Name: "val(id), path(reads)"}, "tuple val(id), path(reads)"},
		{schema.Channel{Kind: schema.ChannelStdout, Emit: "log"}, "stdout, emit: log"},
		{schema.Channel{Kind: schema.ChannelEnv, Name: "HOME"}, "env HOME"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, channelDecl(tc.in))
	}
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "", indent(4, ""))
	assert.Equal(t, "  a\n\n  b", indent(2, "a\n\nb\n"))
}

func TestWorkflowBlock(t *testing.T) {
	assert.Equal(t, "workflow {\n}", workflowBlock("  "))
	assert.Equal(t, "workflow {\n    A()\n    B(A.out)\n}", workflowBlock("A()\nB(A.out)"))
	assert.Equal(t, "workflow{ A() }", workflowBlock("\nworkflow{ A() }\n"))
}

func TestGroovyKey(t *testing.T) {
	assert.Equal(t, "cpus", groovyKey("cpus"))
	assert.Equal(t, "'max-cpus'", groovyKey("max-cpus"))
	assert.Equal(t, `'it\'s'`, groovyKey("it's"))
}

func TestCommentText(t *testing.T) {
	assert.Equal(t, "QC", commentText("QC"))
	assert.Equal(t, `trims *\/ then aligns`, commentText("trims */ then aligns"))
	assert.Equal(t, "line one line two", commentText("line one\nline two"))
}

func TestScriptBody(t *testing.T) {
	assert.Equal(t, "echo hi", scriptBody("echo hi"))
	assert.Equal(t, `python -c \"\"\"doc\"\"\"`, scriptBody(`python -c """doc"""`))
}
