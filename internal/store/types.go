package store

import (
	"time"

	"github.com/rendis/nfstudio/pkg/schema"
)

// Revision sources.
const (
	SourceCreate  = "create"
	SourceEdit    = "edit"
	SourceSuggest = "suggest"
	SourceRestore = "restore"
)

// Draft is a persisted pipeline being edited.
type Draft struct {
	ID        string          `json:"id"`
	Pipeline  schema.Pipeline `json:"pipeline"`
	Revision  int64           `json:"revision"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DraftUpdate replaces a draft's pipeline and records a revision.
type DraftUpdate struct {
	Pipeline schema.Pipeline
	Source   string // default: edit
	Note     string
	// ExpectedRevision, when > 0, rejects the update with CONFLICT unless
	// the stored revision matches.
	ExpectedRevision int64
}

// DraftFilter narrows ListDrafts. Results are ordered by updated_at DESC.
type DraftFilter struct {
	Name          string // substring match on pipeline name
	UpdatedBefore *time.Time
	Limit         int
	Offset        int
}

// Revision is one entry of a draft's append-only history.
type Revision struct {
	DraftID   string          `json:"draft_id"`
	Sequence  int64           `json:"sequence"`
	Pipeline  schema.Pipeline `json:"pipeline"`
	Source    string          `json:"source"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
