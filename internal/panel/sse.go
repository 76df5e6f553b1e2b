package panel

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rendis/nfstudio/internal/logging"
	"github.com/rendis/nfstudio/internal/streaming"
)

// eventSnapshot is the first event on a draft stream: the current layout.
const eventSnapshot = "draft.snapshot"

// handleSSEDraft streams events for one draft via Server-Sent Events.
// The stream opens with a snapshot of the current layout.
func (s *PanelServer) handleSSEDraft(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := logging.WithDraftID(r.Context(), id)

	d, res, err := s.deps.Studio.DraftLayout(ctx, id, layoutOverride(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ch, cancel, err := s.deps.Studio.Subscribe(ctx, id)
	if err != nil {
		logging.LogWith(ctx, s.deps.Logger).Error("SSE subscribe failed", "error", err)
		http.Error(w, "subscribe failed", http.StatusInternalServerError)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	writeEvent(w, streaming.DraftEvent{
		DraftID:   d.ID,
		EventType: eventSnapshot,
		Revision:  d.Revision,
		Warning:   res.Warning(),
		Payload:   res,
		At:        time.Now().UTC(),
	})
	flusher.Flush()

	heartbeat := time.NewTicker(s.deps.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, event)
			flusher.Flush()
			if event.EventType == streaming.EventDraftDeleted {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event streaming.DraftEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType, data)
}
