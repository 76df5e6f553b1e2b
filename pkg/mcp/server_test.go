package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNFStudioServer(t *testing.T) {
	s := NewNFStudioServer(NFStudioServerDeps{})
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.sessions)
	assert.NotNil(t, s.notifier)
}

func TestToolRegistration(t *testing.T) {
	s := NewNFStudioServer(NFStudioServerDeps{})

	tools := s.mcpServer.ListTools()
	require.Len(t, tools, 6)

	expectedTools := []string{
		"nfstudio.layout",
		"nfstudio.validate",
		"nfstudio.render",
		"nfstudio.diagram",
		"nfstudio.suggest",
		"nfstudio.drafts",
	}
	for _, name := range expectedTools {
		tool := s.mcpServer.GetTool(name)
		assert.NotNil(t, tool, "tool %s should be registered", name)
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name        string
		toolName    string
		description string
	}{
		{"layout", "nfstudio.layout", "Lay out a workflow graph: layers, node coordinates and edge curves"},
		{"validate", "nfstudio.validate", "Validate a pipeline and list errors and warnings"},
		{"render", "nfstudio.render", "Render main.nf and nextflow.config for a pipeline"},
		{"suggest", "nfstudio.suggest", "Ask the model for pipeline changes toward a goal and merge them"},
		{"drafts", "nfstudio.drafts", "Manage persisted pipeline drafts and their revision history"},
	}

	s := NewNFStudioServer(NFStudioServerDeps{})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tool := s.mcpServer.GetTool(tc.toolName)
			require.NotNil(t, tool)
			assert.Equal(t, tc.description, tool.Tool.Description)
		})
	}
}

func TestDiagramToolFormats(t *testing.T) {
	s := NewNFStudioServer(NFStudioServerDeps{})
	tool := s.mcpServer.GetTool("nfstudio.diagram")
	require.NotNil(t, tool)

	format, ok := tool.Tool.InputSchema.Properties["format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"ascii", "mermaid", "svg", "image"}, format["enum"])
	assert.Contains(t, tool.Tool.InputSchema.Required, "format")
}
