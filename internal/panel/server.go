package panel

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rendis/nfstudio/internal/logging"
	"github.com/rendis/nfstudio/internal/studio"
)

// PanelDeps holds the dependencies for the panel server.
type PanelDeps struct {
	Studio *studio.Studio
	Logger *slog.Logger
	// Heartbeat is the SSE keep-alive interval. Zero means 15s.
	Heartbeat time.Duration
}

// PanelServer serves the JSON API and draft event streams.
type PanelServer struct {
	deps     PanelDeps
	validate *validator.Validate
}

// NewPanelServer creates a new PanelServer.
func NewPanelServer(deps PanelDeps) *PanelServer {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if deps.Heartbeat <= 0 {
		deps.Heartbeat = 15 * time.Second
	}
	return &PanelServer{
		deps:     deps,
		validate: newValidator(),
	}
}

// Handler returns the HTTP handler for the panel routes.
func (s *PanelServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Stateless operations.
	mux.HandleFunc("POST /api/layout", s.handleLayout)
	mux.HandleFunc("POST /api/render", s.handleRender)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("POST /api/suggest", s.handleSuggest)

	// Drafts.
	mux.HandleFunc("POST /api/drafts", s.handleCreateDraft)
	mux.HandleFunc("GET /api/drafts", s.handleListDrafts)
	mux.HandleFunc("GET /api/drafts/{id}", s.handleGetDraft)
	mux.HandleFunc("PUT /api/drafts/{id}", s.handleUpdateDraft)
	mux.HandleFunc("DELETE /api/drafts/{id}", s.handleDeleteDraft)
	mux.HandleFunc("GET /api/drafts/{id}/layout", s.handleDraftLayout)
	mux.HandleFunc("GET /api/drafts/{id}/diagram.svg", s.handleDraftSVG)
	mux.HandleFunc("GET /api/drafts/{id}/diagram.png", s.handleDraftPNG)
	mux.HandleFunc("GET /api/drafts/{id}/diagram.mmd", s.handleDraftMermaid)
	mux.HandleFunc("POST /api/drafts/{id}/suggest", s.handleDraftSuggest)
	mux.HandleFunc("GET /api/drafts/{id}/revisions", s.handleListRevisions)
	mux.HandleFunc("POST /api/drafts/{id}/revisions/{seq}/restore", s.handleRestoreRevision)

	// SSE streams.
	mux.HandleFunc("GET /sse/drafts/{id}", s.handleSSEDraft)

	return s.withRequestID(mux)
}

// withRequestID tags every request with an ID (honoring X-Request-ID) and logs it.
func (s *PanelServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ctx := logging.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		s.deps.Logger.DebugContext(ctx, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// statusRecorder captures the response status and keeps streaming working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
