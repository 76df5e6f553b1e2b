package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/pkg/schema"
)

const linearYAML = `
name: linear
processes:
  - name: A
    script: echo a
  - name: B
    script: echo b
workflow: |
  A()
  B(A.out)
`

const cyclicYAML = `
name: cyclic
processes:
  - name: A
    script: echo a
  - name: B
    script: echo b
workflow: |
  A(B.out)
  B(A.out)
`

const duplicateYAML = `
name: dup
processes:
  - name: A
    script: echo a
  - name: A
    script: echo again
workflow: A()
`

// isolate points HOME and the config file at a temp dir so tests never touch
// the user's ~/.nfstudio.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("GEMINI_API_KEY", "")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{
		"--config", filepath.Join(dir, "settings.yaml"),
		"--db-path", filepath.Join(dir, "nfstudio.db"),
	}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersionCmd(t *testing.T) {
	dir := isolate(t)
	out, _, err := runCLI(t, dir, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestLayoutCmd(t *testing.T) {
	dir := isolate(t)
	file := writeFile(t, dir, "linear.yaml", linearYAML)

	out, stderr, err := runCLI(t, dir, "layout", file)
	require.NoError(t, err)
	assert.Empty(t, stderr)

	var res engine.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Nodes, 2)
	assert.Equal(t, 320.0, res.Node("A").X)
	assert.Equal(t, 60.0, res.Node("A").Y)
	assert.Equal(t, 170.0, res.Node("B").Y)
	require.Len(t, res.Edges, 1)
	assert.Equal(t, engine.Point{X: 400, Y: 110}, res.Edges[0].Start)
	assert.Equal(t, 500.0, res.Width)
	assert.Equal(t, 280.0, res.Height)
}

func TestLayoutCmd_CanvasWidthFlag(t *testing.T) {
	dir := isolate(t)
	file := writeFile(t, dir, "linear.yaml", linearYAML)

	out, _, err := runCLI(t, dir, "--canvas-width", "1000", "layout", file)
	require.NoError(t, err)

	var res engine.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1000.0, res.CanvasWidth)
	assert.Equal(t, 420.0, res.Node("A").X)
}

func TestLayoutCmd_CycleWarning(t *testing.T) {
	dir := isolate(t)
	file := writeFile(t, dir, "cyclic.yaml", cyclicYAML)

	out, stderr, err := runCLI(t, dir, "layout", file)
	require.NoError(t, err)
	assert.Contains(t, stderr, "warning: 2 processes could not be placed")

	var res engine.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Nodes)
	assert.ElementsMatch(t, []string{"A", "B"}, res.Unplaced)
}

func TestLayoutCmd_MissingFile(t *testing.T) {
	dir := isolate(t)
	_, _, err := runCLI(t, dir, "layout", filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read pipeline")
}

func TestValidateCmd(t *testing.T) {
	dir := isolate(t)

	out, _, err := runCLI(t, dir, "validate", writeFile(t, dir, "linear.yaml", linearYAML))
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	out, _, err = runCLI(t, dir, "validate", writeFile(t, dir, "dup.yaml", duplicateYAML))
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
	assert.Contains(t, out, "error   processes[1].name")
}

func TestValidateCmd_CycleIsWarning(t *testing.T) {
	dir := isolate(t)
	out, _, err := runCLI(t, dir, "validate", writeFile(t, dir, "cyclic.yaml", cyclicYAML))
	require.NoError(t, err)
	assert.Contains(t, out, "warning workflow")
	assert.Contains(t, out, schema.ErrCodeCycle)
}

func TestRenderCmd(t *testing.T) {
	dir := isolate(t)
	file := writeFile(t, dir, "linear.yaml", linearYAML)

	out, _, err := runCLI(t, dir, "render", file)
	require.NoError(t, err)
	assert.Contains(t, out, "// main.nf")
	assert.Contains(t, out, "// nextflow.config")
	assert.Contains(t, out, "process A")

	outDir := filepath.Join(dir, "out")
	out, _, err = runCLI(t, dir, "render", "--out", outDir, file)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "main.nf"))
	assert.FileExists(t, filepath.Join(outDir, "nextflow.config"))
	assert.Contains(t, out, filepath.Join(outDir, "main.nf"))
}

func TestRenderCmd_Invalid(t *testing.T) {
	dir := isolate(t)
	_, stderr, err := runCLI(t, dir, "render", writeFile(t, dir, "dup.yaml", duplicateYAML))
	require.Error(t, err)
	assert.Contains(t, stderr, "error")
}

func TestDiagramCmd(t *testing.T) {
	dir := isolate(t)
	file := writeFile(t, dir, "linear.yaml", linearYAML)

	tests := []struct {
		format string
		want   string
	}{
		{"mermaid", "graph TD"},
		{"svg", "<svg"},
		{"ascii", "A"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, _, err := runCLI(t, dir, "diagram", "--format", tt.format, file)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestDiagramCmd_OutputFile(t *testing.T) {
	dir := isolate(t)
	file := writeFile(t, dir, "linear.yaml", linearYAML)
	dest := filepath.Join(dir, "img", "graph.svg")

	out, _, err := runCLI(t, dir, "diagram", "-f", "svg", "-o", dest, file)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestDiagramCmd_UnknownFormat(t *testing.T) {
	dir := isolate(t)
	_, _, err := runCLI(t, dir, "diagram", "-f", "gif", writeFile(t, dir, "linear.yaml", linearYAML))
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
}

func TestSuggestCmd_NotConfigured(t *testing.T) {
	dir := isolate(t)
	file := writeFile(t, dir, "linear.yaml", linearYAML)

	_, _, err := runCLI(t, dir, "suggest", "--goal", "add trimming", file)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeSuggest, schema.CodeOf(err))

	_, _, err = runCLI(t, dir, "suggest", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goal")
}

func TestToolsStatusCmd(t *testing.T) {
	dir := isolate(t)
	binDir := filepath.Join(dir, "bin")
	writeFile(t, dir, "settings.yaml", "mermaid_ascii_dir: "+binDir+"\n")

	out, _, err := runCLI(t, dir, "tools", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not installed")

	require.NoError(t, os.MkdirAll(binDir, 0o755))
	writeFile(t, binDir, mermaidASCIIBinary, "#!/bin/sh\n")
	out, _, err = runCLI(t, dir, "tools", "status")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(binDir, mermaidASCIIBinary))
	assert.Contains(t, out, "sha256 ")
}

func TestRootCmd_BadConfigFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "settings.yaml", "canvas_width: [oops\n")
	_, _, err := runCLI(t, dir, "layout", writeFile(t, dir, "linear.yaml", linearYAML))
	require.Error(t, err)
}
