package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/nfstudio/internal/diagram"
	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/internal/logging"
	"github.com/rendis/nfstudio/internal/store"
	"github.com/rendis/nfstudio/pkg/schema"
)

// handleLayout lays out a pipeline, a raw workflow or a stored draft.
func (s *NFStudioServer) handleLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	override := engine.Options{CanvasWidth: req.GetFloat("canvas_width", 0)}

	if draftID := req.GetString("draft_id", ""); draftID != "" {
		s.captureSession(ctx, draftID)
		_, res, err := s.studio.DraftLayout(ctx, draftID, override)
		if err != nil {
			return toolError("layout failed", err), nil
		}
		return marshalLayout(res)
	}

	p, err := parsePipeline(req)
	if err != nil {
		return toolError("invalid pipeline", err), nil
	}
	if p == nil {
		args := req.GetArguments()
		_, hasWorkflow := args["workflow"]
		_, hasProcesses := args["processes"]
		if !hasWorkflow && !hasProcesses {
			return mcp.NewToolResultError("one of pipeline, workflow, processes or draft_id is required"), nil
		}
		p = &schema.Pipeline{Name: "adhoc", Workflow: engine.SourceText(args["workflow"])}
		for _, name := range req.GetStringSlice("processes", nil) {
			p.Processes = append(p.Processes, schema.Process{Name: name})
		}
	}

	res, err := s.studio.Layout(p, override)
	if err != nil {
		return toolError("layout failed", err), nil
	}
	return marshalLayout(res)
}

// handleValidate reports validation errors and warnings.
func (s *NFStudioServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := parsePipeline(req)
	if err != nil {
		return toolError("invalid pipeline", err), nil
	}
	if p == nil {
		return mcp.NewToolResultError("pipeline is required"), nil
	}
	result := s.studio.Validate(ctx, p)
	return marshalResult(map[string]any{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

// handleRender renders main.nf and nextflow.config.
func (s *NFStudioServer) handleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.resolvePipeline(ctx, req)
	if err != nil {
		return toolError("render failed", err), nil
	}
	art, result, err := s.studio.Render(ctx, p)
	if err != nil {
		return toolError("render failed", err), nil
	}
	return marshalResult(map[string]any{
		"main_nf":         art.Script,
		"nextflow_config": art.Config,
		"warnings":        result.Warnings,
	})
}

// handleDiagram draws a pipeline in the requested format.
func (s *NFStudioServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "ascii" && format != "mermaid" && format != "svg" && format != "image" {
		return mcp.NewToolResultError("format must be ascii, mermaid, svg, or image"), nil
	}

	p, err := s.resolvePipeline(ctx, req)
	if err != nil {
		return toolError("diagram failed", err), nil
	}
	model, err := s.studio.Diagram(p, engine.Options{CanvasWidth: req.GetFloat("canvas_width", 0)})
	if err != nil {
		return toolError("diagram build failed", err), nil
	}

	switch format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCIIAuto(model, s.mermaidASCIIDir)), nil
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	case "svg":
		svg, svgErr := diagram.RenderSVG(model)
		if svgErr != nil {
			return toolError("svg render failed", svgErr), nil
		}
		return mcp.NewToolResultText(svg), nil
	default:
		png, imgErr := diagram.RenderImage(ctx, model)
		if imgErr != nil {
			return toolError("image render failed", imgErr), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	}
}

// handleSuggest merges a model suggestion into a pipeline, or into a stored
// draft as a new revision.
func (s *NFStudioServer) handleSuggest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goal, err := req.RequireString("goal")
	if err != nil {
		return mcp.NewToolResultError("goal is required"), nil
	}

	if draftID := req.GetString("draft_id", ""); draftID != "" {
		s.captureSession(ctx, draftID)
		d, res, sugErr := s.studio.SuggestDraft(ctx, draftID, goal)
		if sugErr != nil {
			return toolError("suggest failed", sugErr), nil
		}
		return marshalResult(map[string]any{"draft": d, "suggestion": res.Suggestion})
	}

	p, err := parsePipeline(req)
	if err != nil {
		return toolError("invalid pipeline", err), nil
	}
	if p == nil {
		return mcp.NewToolResultError("one of pipeline or draft_id is required"), nil
	}
	res, err := s.studio.Suggest(ctx, goal, p)
	if err != nil {
		return toolError("suggest failed", err), nil
	}
	return marshalResult(res)
}

// handleDrafts dispatches draft management actions.
func (s *NFStudioServer) handleDrafts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action is required"), nil
	}

	if action == "list" {
		return s.listDrafts(ctx, mcp.ParseStringMap(req, "filter", nil))
	}
	if action == "create" {
		return s.createDraft(ctx, req)
	}

	draftID, err := req.RequireString("draft_id")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("draft_id is required for %s", action)), nil
	}
	ctx = logging.WithDraftID(ctx, draftID)
	s.captureSession(ctx, draftID)

	switch action {
	case "get":
		d, getErr := s.studio.GetDraft(ctx, draftID)
		if getErr != nil {
			return toolError("get failed", getErr), nil
		}
		return marshalResult(d)
	case "update":
		p, parseErr := parsePipeline(req)
		if parseErr != nil {
			return toolError("invalid pipeline", parseErr), nil
		}
		if p == nil {
			return mcp.NewToolResultError("pipeline is required for update"), nil
		}
		d, updErr := s.studio.UpdateDraft(ctx, draftID, store.DraftUpdate{
			Pipeline:         *p,
			Source:           store.SourceEdit,
			Note:             req.GetString("note", ""),
			ExpectedRevision: int64(req.GetInt("expected_revision", 0)),
		})
		if updErr != nil {
			return toolError("update failed", updErr), nil
		}
		return marshalResult(d)
	case "delete":
		if delErr := s.studio.DeleteDraft(ctx, draftID); delErr != nil {
			return toolError("delete failed", delErr), nil
		}
		return marshalResult(map[string]any{"ok": true, "draft_id": draftID})
	case "revisions":
		revs, revErr := s.studio.ListRevisions(ctx, draftID)
		if revErr != nil {
			return toolError("revisions query failed", revErr), nil
		}
		return marshalResult(map[string]any{"revisions": revs})
	case "restore":
		seq := req.GetInt("revision", 0)
		if seq < 1 {
			return mcp.NewToolResultError("revision must be a positive sequence number"), nil
		}
		d, resErr := s.studio.RestoreRevision(ctx, draftID, int64(seq))
		if resErr != nil {
			return toolError("restore failed", resErr), nil
		}
		return marshalResult(d)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
}

// --- Draft helpers ---

func (s *NFStudioServer) createDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := parsePipeline(req)
	if err != nil {
		return toolError("invalid pipeline", err), nil
	}
	if p == nil {
		return mcp.NewToolResultError("pipeline is required for create"), nil
	}
	d, err := s.studio.CreateDraft(ctx, *p)
	if err != nil {
		return toolError("create failed", err), nil
	}
	s.captureSession(ctx, d.ID)
	return marshalResult(d)
}

func (s *NFStudioServer) listDrafts(ctx context.Context, filter map[string]any) (*mcp.CallToolResult, error) {
	df := store.DraftFilter{
		Limit:  extractInt(filter, "limit", 50),
		Offset: extractInt(filter, "offset", 0),
	}
	if name, ok := filter["name"].(string); ok {
		df.Name = name
	}
	drafts, err := s.studio.ListDrafts(ctx, df)
	if err != nil {
		return toolError("query failed", err), nil
	}
	if drafts == nil {
		drafts = []*store.Draft{}
	}
	return marshalResult(map[string]any{"drafts": drafts})
}

// --- Internal helpers ---

// resolvePipeline reads the pipeline argument, falling back to the stored
// draft named by draft_id.
func (s *NFStudioServer) resolvePipeline(ctx context.Context, req mcp.CallToolRequest) (*schema.Pipeline, error) {
	p, err := parsePipeline(req)
	if err != nil || p != nil {
		return p, err
	}
	draftID := req.GetString("draft_id", "")
	if draftID == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "one of pipeline or draft_id is required")
	}
	s.captureSession(ctx, draftID)
	d, err := s.studio.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return &d.Pipeline, nil
}

// parsePipeline decodes the pipeline argument. It returns nil, nil when the
// argument is absent.
func parsePipeline(req mcp.CallToolRequest) (*schema.Pipeline, error) {
	raw := mcp.ParseStringMap(req, "pipeline", nil)
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "invalid pipeline: %v", err)
	}
	return schema.DecodePipeline(data)
}

// extractInt safely extracts an integer from a filter map.
func extractInt(filter map[string]any, key string, defaultVal int) int {
	if filter == nil {
		return defaultVal
	}
	v, ok := filter[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// captureSession subscribes the calling MCP session to a draft's notifications.
func (s *NFStudioServer) captureSession(ctx context.Context, draftID string) {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.sessions.Watch(draftID, session.SessionID())
	}
}

// marshalLayout returns a layout result with its placement warning.
func marshalLayout(res *engine.Result) (*mcp.CallToolResult, error) {
	return marshalResult(struct {
		*engine.Result
		Warning string `json:"warning,omitempty"`
	}{res, res.Warning()})
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}

// toolError reports err as a tool-level error, keeping the error code.
func toolError(prefix string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}
