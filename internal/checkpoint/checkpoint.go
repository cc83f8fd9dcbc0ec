// Package checkpoint tracks, per agent turn, which files changed and what
// their pre-turn contents were, so a turn can be rolled back. Grounded on
// the teacher's internal/store/file JSON-on-disk adapter (os.MkdirAll +
// atomic write) for persistence, and on sessions.Manager's
// sync.RWMutex-guarded map for the in-memory snapshot collector.
package checkpoint

import (
	"time"

	"github.com/google/uuid"

	"github.com/prizm-dev/prizm/internal/model"
)

// CreateCheckpoint returns a fresh, incomplete checkpoint skeleton for the
// turn opened by the given user message. Pure: no side effects.
func CreateCheckpoint(sessionID string, messageIndex int, userMessage string) model.Checkpoint {
	return model.Checkpoint{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		MessageIndex: messageIndex,
		UserMessage:  userMessage,
		CreatedAt:    time.Now().UTC(),
		FileChanges:  nil,
		Completed:    false,
	}
}

// CompleteCheckpoint returns a new record with fileChanges attached and
// Completed set, leaving cp untouched.
func CompleteCheckpoint(cp model.Checkpoint, fileChanges []model.FileChange) model.Checkpoint {
	out := cp
	out.FileChanges = append([]model.FileChange(nil), fileChanges...)
	out.Completed = true
	return out
}
