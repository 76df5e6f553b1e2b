package panel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/pkg/schema"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON envelope for every error response.
type errorBody struct {
	Error *schema.NFError `json:"error"`
}

// writeError writes err as an error envelope. Non-NFError values are hidden
// behind a generic message.
func (s *PanelServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *schema.NFError
	if !errors.As(err, &nf) {
		s.deps.Logger.ErrorContext(r.Context(), "unhandled error", "error", err)
		nf = schema.NewError("INTERNAL_ERROR", "internal error")
	}
	status := statusFor(nf.Code)
	if status >= http.StatusInternalServerError {
		s.deps.Logger.ErrorContext(r.Context(), "request failed", "code", nf.Code, "error", err)
	}
	writeJSON(w, status, errorBody{Error: nf})
}

// statusFor maps an error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case schema.ErrCodeValidation, schema.ErrCodeExpression:
		return http.StatusBadRequest
	case schema.ErrCodeNotFound:
		return http.StatusNotFound
	case schema.ErrCodeConflict:
		return http.StatusConflict
	case schema.ErrCodeCycle:
		return http.StatusUnprocessableEntity
	case schema.ErrCodeSuggest:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// queryInt extracts an integer query param with a default value.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// queryFloat extracts a float query param, 0 when absent or malformed.
func queryFloat(r *http.Request, key string) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil {
		return 0
	}
	return v
}

// layoutOverride reads geometry overrides from the query string.
func layoutOverride(r *http.Request) engine.Options {
	return engine.Options{
		CanvasWidth: queryFloat(r, "canvas_width"),
		NodeWidth:   queryFloat(r, "node_width"),
		NodeHeight:  queryFloat(r, "node_height"),
	}
}
