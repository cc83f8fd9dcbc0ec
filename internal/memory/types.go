package memory

import "time"

// MemType classifies a memory cell for routing and dedup-eligibility.
type MemType string

const (
	TypeProfile       MemType = "profile"
	TypeEpisodic      MemType = "episodic"
	TypeForesight     MemType = "foresight"
	TypeEventLog      MemType = "event_log"
	TypeDocumentScene MemType = "document_scene"
)

// MemCell is one candidate memory extracted from a turn, awaiting routing
// and dedup before insertion.
type MemCell struct {
	Content  string
	Type     MemType
	Metadata string
}

// Routing carries the scope/session context processMemCell uses to compute
// a memory's group id.
type Routing struct {
	Scope     string
	SessionID string
}

// Row is a persisted memory.
type Row struct {
	ID        string
	GroupID   string
	Type      MemType
	Content   string
	Metadata  string
	Embedding []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// groupID implements the routing rule from the memory writer contract:
// profile -> "" (null group), episodic/foresight -> scope, event_log ->
// "scope:session:<sessionId>", document scene -> "scope:docs".
func groupID(memType MemType, r Routing) string {
	switch memType {
	case TypeProfile:
		return ""
	case TypeEventLog:
		return r.Scope + ":session:" + r.SessionID
	case TypeDocumentScene:
		return r.Scope + ":docs"
	default: // episodic, foresight
		return r.Scope
	}
}
