package panel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nfstudio/internal/expressions"
	"github.com/rendis/nfstudio/internal/store"
	"github.com/rendis/nfstudio/internal/streaming"
	"github.com/rendis/nfstudio/internal/studio"
	"github.com/rendis/nfstudio/internal/suggest"
	"github.com/rendis/nfstudio/internal/validation"
	"github.com/rendis/nfstudio/pkg/schema"
)

type stubSuggester struct{}

func (stubSuggester) Suggest(_ context.Context, goal string, current *schema.Pipeline) (*suggest.Result, error) {
	out := *current
	out.Description = goal
	return &suggest.Result{Pipeline: &out, Suggestion: &suggest.Suggestion{Explanation: "set description"}}, nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	st, err := store.NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "panel.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	rules, err := expressions.NewRuleEngines()
	require.NoError(t, err)
	v, err := validation.NewPipelineValidator(rules)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := studio.New(studio.Deps{
		Store:     st,
		Hub:       streaming.NewMemoryHub(),
		Validator: v,
		Suggester: stubSuggester{},
		Logger:    logger,
	})
	return NewPanelServer(PanelDeps{Studio: s, Logger: logger, Heartbeat: time.Hour}).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			rd = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error schema.NFError `json:"error"`
	}
	decodeBody(t, rec, &body)
	return body.Error.Code
}

func rnaseq() schema.Pipeline {
	return schema.Pipeline{
		Name: "rnaseq",
		Params: []schema.Param{
			{Name: "reads", Type: schema.ParamTypePath, Default: "data/*.fq.gz"},
		},
		Processes: []schema.Process{
			{Name: "FASTQC", Script: "fastqc reads"},
			{Name: "MULTIQC", Script: "multiqc ."},
		},
		Workflow: "FASTQC(reads)\nMULTIQC(FASTQC.out)",
	}
}

func createDraft(t *testing.T, h http.Handler) store.Draft {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/drafts", map[string]any{"pipeline": rnaseq()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var d store.Draft
	decodeBody(t, rec, &d)
	return d
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_Propagated(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestLayout_RawWorkflow(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/layout", map[string]any{
		"workflow":  "A(x)\nB(A.out)",
		"processes": []string{"A", "B"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Nodes []struct {
			ID string  `json:"id"`
			X  float64 `json:"x"`
			Y  float64 `json:"y"`
		} `json:"nodes"`
		Edges []struct {
			ID    string `json:"id"`
			Start struct{ X, Y float64 }
		} `json:"edges"`
		Width   float64 `json:"width"`
		Height  float64 `json:"height"`
		Warning string  `json:"warning"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Nodes, 2)
	assert.Equal(t, "A", body.Nodes[0].ID)
	assert.Equal(t, 320.0, body.Nodes[0].X)
	assert.Equal(t, 60.0, body.Nodes[0].Y)
	assert.Equal(t, 170.0, body.Nodes[1].Y)
	require.Len(t, body.Edges, 1)
	assert.Equal(t, "A->B", body.Edges[0].ID)
	assert.Equal(t, 400.0, body.Edges[0].Start.X)
	assert.Equal(t, 110.0, body.Edges[0].Start.Y)
	assert.Equal(t, 500.0, body.Width)
	assert.Equal(t, 280.0, body.Height)
	assert.Empty(t, body.Warning)
}

func TestLayout_CycleWarning(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/layout", map[string]any{
		"workflow":  "A(B.out)\nB(A.out)",
		"processes": []string{"A", "B"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Unplaced []string `json:"unplaced"`
		Warning  string   `json:"warning"`
	}
	decodeBody(t, rec, &body)
	assert.ElementsMatch(t, []string{"A", "B"}, body.Unplaced)
	assert.Equal(t, "2 processes could not be placed (dependency cycle)", body.Warning)
}

func TestLayout_RequestValidation(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/layout", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, schema.ErrCodeValidation, errorCode(t, rec))
	assert.Contains(t, rec.Body.String(), "one of pipeline, workflow or processes is required")

	rec = do(t, h, http.MethodPost, "/api/layout", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, schema.ErrCodeValidation, errorCode(t, rec))
}

func TestLayout_NonTextWorkflowIsEmptyGraph(t *testing.T) {
	h := newTestServer(t)
	for name, workflow := range map[string]any{
		"empty":  "",
		"number": 42,
		"object": map[string]any{"A": true},
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/layout", map[string]any{
				"workflow":  workflow,
				"processes": []string{"A"},
			})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var body struct {
				Nodes  []json.RawMessage `json:"nodes"`
				Layers [][]string        `json:"layers"`
			}
			decodeBody(t, rec, &body)
			assert.Empty(t, body.Nodes)
			assert.Empty(t, body.Layers)
		})
	}
}

func TestRender(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/render", map[string]any{"pipeline": rnaseq()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body renderResponse
	decodeBody(t, rec, &body)
	assert.Contains(t, body.MainNF, "process FASTQC {")
	assert.Contains(t, body.MainNF, "workflow {")
	assert.NotEmpty(t, body.NextflowConfig)
}

func TestRender_InvalidPipeline(t *testing.T) {
	h := newTestServer(t)
	p := rnaseq()
	p.Processes = append(p.Processes, schema.Process{Name: "FASTQC"})
	rec := do(t, h, http.MethodPost, "/api/render", map[string]any{"pipeline": p})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, schema.ErrCodeValidation, errorCode(t, rec))
}

func TestValidate(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/validate", map[string]any{"pipeline": rnaseq()})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Valid bool `json:"valid"`
	}
	decodeBody(t, rec, &body)
	assert.True(t, body.Valid)
}

func TestSuggest_GoalRequired(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/suggest", map[string]any{"pipeline": rnaseq()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "goal: required")
}

func TestDraftCRUD(t *testing.T) {
	h := newTestServer(t)
	d := createDraft(t, h)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, int64(1), d.Revision)

	rec := do(t, h, http.MethodGet, "/api/drafts/"+d.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/drafts?name=rna", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Drafts []store.Draft `json:"drafts"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Drafts, 1)

	p := rnaseq()
	p.Workflow = "FASTQC(reads)"
	rec = do(t, h, http.MethodPut, "/api/drafts/"+d.ID, map[string]any{"pipeline": p, "expected_revision": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated store.Draft
	decodeBody(t, rec, &updated)
	assert.Equal(t, int64(2), updated.Revision)

	rec = do(t, h, http.MethodPut, "/api/drafts/"+d.ID, map[string]any{"pipeline": p, "expected_revision": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, schema.ErrCodeConflict, errorCode(t, rec))

	rec = do(t, h, http.MethodDelete, "/api/drafts/"+d.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/drafts/"+d.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, schema.ErrCodeNotFound, errorCode(t, rec))
}

func TestListDrafts_BadTimestamp(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/drafts?updated_before=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDraftLayout_CanvasOverride(t *testing.T) {
	h := newTestServer(t)
	d := createDraft(t, h)
	rec := do(t, h, http.MethodGet, "/api/drafts/"+d.ID+"/layout?canvas_width=1200", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Layout struct {
			CanvasWidth float64 `json:"canvas_width"`
		} `json:"layout"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, 1200.0, body.Layout.CanvasWidth)
}

func TestDraftDiagrams(t *testing.T) {
	h := newTestServer(t)
	d := createDraft(t, h)

	rec := do(t, h, http.MethodGet, "/api/drafts/"+d.ID+"/diagram.svg", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")

	rec = do(t, h, http.MethodGet, "/api/drafts/"+d.ID+"/diagram.mmd", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "graph TD"))

	rec = do(t, h, http.MethodGet, "/api/drafts/missing/diagram.svg", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraftSuggest(t *testing.T) {
	h := newTestServer(t)
	d := createDraft(t, h)
	rec := do(t, h, http.MethodPost, "/api/drafts/"+d.ID+"/suggest", map[string]any{"goal": "document it"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Draft store.Draft `json:"draft"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, int64(2), body.Draft.Revision)
	assert.Equal(t, "document it", body.Draft.Pipeline.Description)

	rec = do(t, h, http.MethodGet, "/api/drafts/"+d.ID+"/revisions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var revs struct {
		Revisions []store.Revision `json:"revisions"`
	}
	decodeBody(t, rec, &revs)
	require.Len(t, revs.Revisions, 2)
	assert.Equal(t, store.SourceSuggest, revs.Revisions[1].Source)
}

func TestRestoreRevision(t *testing.T) {
	h := newTestServer(t)
	d := createDraft(t, h)

	p := rnaseq()
	p.Name = "renamed"
	rec := do(t, h, http.MethodPut, "/api/drafts/"+d.ID, map[string]any{"pipeline": p})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/drafts/"+d.ID+"/revisions/1/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var restored store.Draft
	decodeBody(t, rec, &restored)
	assert.Equal(t, "rnaseq", restored.Pipeline.Name)
	assert.Equal(t, int64(3), restored.Revision)

	rec = do(t, h, http.MethodPost, "/api/drafts/"+d.ID+"/revisions/zero/restore", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{schema.ErrCodeValidation, http.StatusBadRequest},
		{schema.ErrCodeExpression, http.StatusBadRequest},
		{schema.ErrCodeNotFound, http.StatusNotFound},
		{schema.ErrCodeConflict, http.StatusConflict},
		{schema.ErrCodeCycle, http.StatusUnprocessableEntity},
		{schema.ErrCodeSuggest, http.StatusBadGateway},
		{schema.ErrCodeStore, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.code))
		})
	}
}

// readEvent reads one SSE event (event + data lines), skipping comments.
func readEvent(t *testing.T, rd *bufio.Reader) (string, streaming.DraftEvent) {
	t.Helper()
	var name string
	var evt streaming.DraftEvent
	for {
		line, err := rd.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt))
		case line == "" && name != "":
			return name, evt
		}
	}
}

func TestSSEDraft(t *testing.T) {
	h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := createDraft(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse/drafts/"+d.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	name, evt := readEvent(t, rd)
	assert.Equal(t, eventSnapshot, name)
	assert.Equal(t, int64(1), evt.Revision)

	p := rnaseq()
	p.Workflow = "FASTQC(reads)"
	rec := do(t, h, http.MethodPut, "/api/drafts/"+d.ID, map[string]any{"pipeline": p})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	name, evt = readEvent(t, rd)
	assert.Equal(t, streaming.EventDraftUpdated, name)
	assert.Equal(t, int64(2), evt.Revision)

	rec = do(t, h, http.MethodDelete, "/api/drafts/"+d.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	name, _ = readEvent(t, rd)
	assert.Equal(t, streaming.EventDraftDeleted, name)
}

func TestSSEDraft_NotFound(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/sse/drafts/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
