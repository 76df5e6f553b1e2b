package panel

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rendis/nfstudio/internal/diagram"
	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/internal/store"
	"github.com/rendis/nfstudio/pkg/schema"
)

// --- Response types ---

type layoutResponse struct {
	*engine.Result
	Warning string `json:"warning,omitempty"`
}

type renderResponse struct {
	MainNF         string                   `json:"main_nf"`
	NextflowConfig string                   `json:"nextflow_config"`
	Warnings       []schema.ValidationIssue `json:"warnings,omitempty"`
}

type draftLayoutResponse struct {
	Draft  *store.Draft   `json:"draft"`
	Layout layoutResponse `json:"layout"`
}

func newLayoutResponse(res *engine.Result) layoutResponse {
	return layoutResponse{Result: res, Warning: res.Warning()}
}

// --- Stateless operations ---

func (s *PanelServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *PanelServer) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.check(); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Studio.Layout(req.pipeline(), req.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLayoutResponse(res))
}

func (s *PanelServer) handleRender(w http.ResponseWriter, r *http.Request) {
	var req pipelineRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	art, result, err := s.deps.Studio.Render(r.Context(), req.Pipeline)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderResponse{
		MainNF:         art.Script,
		NextflowConfig: art.Config,
		Warnings:       result.Warnings,
	})
}

func (s *PanelServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req pipelineRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result := s.deps.Studio.Validate(r.Context(), req.Pipeline)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

func (s *PanelServer) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Studio.Suggest(r.Context(), req.Goal, req.Pipeline)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Drafts ---

func (s *PanelServer) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req pipelineRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.deps.Studio.CreateDraft(r.Context(), *req.Pipeline)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/drafts/"+d.ID)
	writeJSON(w, http.StatusCreated, d)
}

func (s *PanelServer) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	filter := store.DraftFilter{
		Name:   r.URL.Query().Get("name"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("updated_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, r, schema.NewErrorf(schema.ErrCodeValidation, "updated_before: %v", err))
			return
		}
		filter.UpdatedBefore = &t
	}
	drafts, err := s.deps.Studio.ListDrafts(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if drafts == nil {
		drafts = []*store.Draft{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": drafts})
}

func (s *PanelServer) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Studio.GetDraft(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *PanelServer) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req updateDraftRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.deps.Studio.UpdateDraft(r.Context(), r.PathValue("id"), store.DraftUpdate{
		Pipeline:         *req.Pipeline,
		Source:           store.SourceEdit,
		Note:             req.Note,
		ExpectedRevision: req.ExpectedRevision,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *PanelServer) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Studio.DeleteDraft(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *PanelServer) handleDraftLayout(w http.ResponseWriter, r *http.Request) {
	d, res, err := s.deps.Studio.DraftLayout(r.Context(), r.PathValue("id"), layoutOverride(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draftLayoutResponse{Draft: d, Layout: newLayoutResponse(res)})
}

// draftDiagram loads a draft and builds its diagram model.
func (s *PanelServer) draftDiagram(r *http.Request) (*diagram.DiagramModel, error) {
	d, res, err := s.deps.Studio.DraftLayout(r.Context(), r.PathValue("id"), layoutOverride(r))
	if err != nil {
		return nil, err
	}
	return diagram.Build(&d.Pipeline, res)
}

func (s *PanelServer) handleDraftSVG(w http.ResponseWriter, r *http.Request) {
	model, err := s.draftDiagram(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	svg, err := diagram.RenderSVG(model)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(svg))
}

func (s *PanelServer) handleDraftPNG(w http.ResponseWriter, r *http.Request) {
	model, err := s.draftDiagram(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	png, err := diagram.RenderImage(r.Context(), model)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *PanelServer) handleDraftMermaid(w http.ResponseWriter, r *http.Request) {
	model, err := s.draftDiagram(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(diagram.RenderMermaid(model)))
}

func (s *PanelServer) handleDraftSuggest(w http.ResponseWriter, r *http.Request) {
	var req draftSuggestRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, res, err := s.deps.Studio.SuggestDraft(r.Context(), r.PathValue("id"), req.Goal)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"draft":      d,
		"suggestion": res.Suggestion,
	})
}

func (s *PanelServer) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	revs, err := s.deps.Studio.ListRevisions(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if revs == nil {
		revs = []*store.Revision{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": revs})
}

func (s *PanelServer) handleRestoreRevision(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.ParseInt(r.PathValue("seq"), 10, 64)
	if err != nil || seq < 1 {
		s.writeError(w, r, schema.NewErrorf(schema.ErrCodeValidation, "invalid revision %q", r.PathValue("seq")))
		return
	}
	d, err := s.deps.Studio.RestoreRevision(r.Context(), r.PathValue("id"), seq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
