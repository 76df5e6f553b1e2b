package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/nfstudio/internal/studio"
)

// NFStudioServerDeps holds the dependencies for creating an NFStudioServer.
type NFStudioServerDeps struct {
	Studio *studio.Studio
	Logger *slog.Logger
	// MermaidASCIIDir is searched for the mermaid-ascii binary used by the
	// ascii diagram format. Empty means PATH only.
	MermaidASCIIDir string
}

// NFStudioServer wraps an MCP server with pipeline-studio tool handlers.
type NFStudioServer struct {
	studio          *studio.Studio
	logger          *slog.Logger
	mermaidASCIIDir string
	sessions        *SessionRegistry
	notifier        *MCPNotifier
	mcpServer       *server.MCPServer
}

// NewNFStudioServer creates a new NFStudioServer with all tools registered.
func NewNFStudioServer(deps NFStudioServerDeps) *NFStudioServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &NFStudioServer{
		studio:          deps.Studio,
		logger:          logger,
		mermaidASCIIDir: deps.MermaidASCIIDir,
		sessions:        NewSessionRegistry(),
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(_ context.Context, session server.ClientSession) {
		s.sessions.Remove(session.SessionID())
	})

	mcpSrv := server.NewMCPServer(
		"nfstudio",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithInstructions("nfstudio edits Nextflow pipelines. Use nfstudio.layout to lay out a workflow graph, nfstudio.validate and nfstudio.render to check and generate main.nf and nextflow.config, nfstudio.diagram to draw a pipeline, nfstudio.suggest for AI-assisted changes, and nfstudio.drafts to manage persisted drafts. Sessions that touch a draft receive its change notifications."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.sessions)
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
// Draft events are forwarded to watching sessions for the lifetime of ctx.
func (s *NFStudioServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.ForwardDraftEvents(ctx)

	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// ForwardDraftEvents pushes every draft event to the sessions watching that
// draft until ctx is done. It returns immediately when no hub is configured.
func (s *NFStudioServer) ForwardDraftEvents(ctx context.Context) {
	if s.studio == nil {
		return
	}
	ch, cancel, err := s.studio.Subscribe(ctx, "")
	if err != nil {
		s.logger.Debug("draft notifications disabled", "reason", err)
		return
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := s.notifier.NotifyDraft(ctx, event); err != nil {
				s.logger.Warn("draft notification failed", "draft_id", event.DraftID, "error", err)
			}
		}
	}
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *NFStudioServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *NFStudioServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: layoutTool(), Handler: s.handleLayout},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: renderTool(), Handler: s.handleRender},
		{Tool: diagramTool(), Handler: s.handleDiagram},
		{Tool: suggestTool(), Handler: s.handleSuggest},
		{Tool: draftsTool(), Handler: s.handleDrafts},
	}
}

// --- Tool definitions ---

func layoutTool() mcp.Tool {
	return mcp.NewTool("nfstudio.layout",
		mcp.WithDescription("Lay out a workflow graph: layers, node coordinates and edge curves"),
		mcp.WithObject("pipeline", mcp.Description("Pipeline object (name, params, processes, workflow)")),
		mcp.WithString("workflow", mcp.Description("Raw workflow text, used with processes when no pipeline is given")),
		mcp.WithArray("processes", mcp.WithStringItems(), mcp.Description("Declared process names for the raw workflow")),
		mcp.WithString("draft_id", mcp.Description("Lay out a stored draft instead")),
		mcp.WithNumber("canvas_width", mcp.Description("Canvas width in pixels (default: configured width)")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("nfstudio.validate",
		mcp.WithDescription("Validate a pipeline and list errors and warnings"),
		mcp.WithObject("pipeline", mcp.Required(), mcp.Description("Pipeline object")),
	)
}

func renderTool() mcp.Tool {
	return mcp.NewTool("nfstudio.render",
		mcp.WithDescription("Render main.nf and nextflow.config for a pipeline"),
		mcp.WithObject("pipeline", mcp.Description("Pipeline object")),
		mcp.WithString("draft_id", mcp.Description("Render a stored draft instead")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("nfstudio.diagram",
		mcp.WithDescription("Draw a pipeline's workflow graph. Returns ASCII art, Mermaid flowchart syntax, SVG markup, or a base64-encoded PNG image"),
		mcp.WithObject("pipeline", mcp.Description("Pipeline object")),
		mcp.WithString("draft_id", mcp.Description("Draw a stored draft instead")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "svg", "image"),
			mcp.Description("Output format: ascii (text), mermaid (flowchart syntax), svg (markup) or image (base64 PNG)"),
		),
		mcp.WithNumber("canvas_width", mcp.Description("Canvas width in pixels for svg")),
	)
}

func suggestTool() mcp.Tool {
	return mcp.NewTool("nfstudio.suggest",
		mcp.WithDescription("Ask the model for pipeline changes toward a goal and merge them"),
		mcp.WithString("goal", mcp.Required(), mcp.Description("What the pipeline should do differently")),
		mcp.WithObject("pipeline", mcp.Description("Pipeline object to start from")),
		mcp.WithString("draft_id", mcp.Description("Apply the suggestion to a stored draft as a new revision")),
	)
}

func draftsTool() mcp.Tool {
	return mcp.NewTool("nfstudio.drafts",
		mcp.WithDescription("Manage persisted pipeline drafts and their revision history"),
		mcp.WithString("action", mcp.Required(),
			mcp.Enum("list", "get", "create", "update", "delete", "revisions", "restore"),
			mcp.Description("Operation to perform"),
		),
		mcp.WithString("draft_id", mcp.Description("Draft ID (all actions except list and create)")),
		mcp.WithObject("pipeline", mcp.Description("Pipeline object (create, update)")),
		mcp.WithNumber("expected_revision", mcp.Description("Reject the update unless the draft is at this revision")),
		mcp.WithString("note", mcp.Description("Revision note (update)")),
		mcp.WithNumber("revision", mcp.Description("Revision sequence to restore")),
		mcp.WithObject("filter", mcp.Description("List filter (name, limit, offset)")),
	)
}
