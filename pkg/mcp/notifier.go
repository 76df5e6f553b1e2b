package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/nfstudio/internal/streaming"
)

// notificationSender is the part of MCPServer the notifier needs.
type notificationSender interface {
	SendNotificationToSpecificClient(sessionID, method string, params map[string]any) error
}

// MCPNotifier pushes draft events to the MCP sessions watching the draft.
type MCPNotifier struct {
	sender   notificationSender
	sessions *SessionRegistry
}

// NewMCPNotifier creates a notifier that pushes via MCP session notifications.
func NewMCPNotifier(sender notificationSender, sessions *SessionRegistry) *MCPNotifier {
	return &MCPNotifier{sender: sender, sessions: sessions}
}

// NotifyDraft sends event to every session watching its draft.
// Best-effort: sessions that have gone away are dropped, not reported.
func (n *MCPNotifier) NotifyDraft(_ context.Context, event streaming.DraftEvent) error {
	payload := map[string]any{
		"level":  "info",
		"logger": "nfstudio",
		"data": map[string]any{
			"draft_id":   event.DraftID,
			"event_type": event.EventType,
			"revision":   event.Revision,
			"warning":    event.Warning,
		},
	}

	var errs []error
	for _, sessionID := range n.sessions.SessionsFor(event.DraftID) {
		err := n.sender.SendNotificationToSpecificClient(sessionID, "notifications/message", payload)
		if errors.Is(err, server.ErrSessionNotFound) {
			n.sessions.Remove(sessionID)
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if event.EventType == streaming.EventDraftDeleted {
		n.sessions.Forget(event.DraftID)
	}
	return errors.Join(errs...)
}
