package mcp

import (
	"slices"
	"sync"
)

// SessionRegistry maps draft IDs to the MCP sessions watching them.
// Populated automatically when a session calls a tool with a draft_id.
type SessionRegistry struct {
	mu       sync.RWMutex
	watchers map[string][]string // draftID → sessionIDs
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{watchers: make(map[string][]string)}
}

// Watch subscribes a session to a draft. Watching twice is a no-op.
func (r *SessionRegistry) Watch(draftID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.watchers[draftID], sessionID) {
		return
	}
	r.watchers[draftID] = append(r.watchers[draftID], sessionID)
}

// SessionsFor returns the sessions watching the given draft.
func (r *SessionRegistry) SessionsFor(draftID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.watchers[draftID])
}

// Forget drops every watcher of a draft. Called when the draft is deleted.
func (r *SessionRegistry) Forget(draftID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watchers, draftID)
}

// Remove deletes all draft subscriptions of the given session ID.
// Called when a session disconnects.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for did, sids := range r.watchers {
		sids = slices.DeleteFunc(sids, func(sid string) bool { return sid == sessionID })
		if len(sids) == 0 {
			delete(r.watchers, did)
		} else {
			r.watchers[did] = sids
		}
	}
}
