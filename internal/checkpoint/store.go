package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists per-checkpoint file snapshots as JSON under
// <scopeRoot>/.prizm/checkpoints/<sessionId>/<checkpointId>.json, mirroring
// the teacher's internal/store/file on-disk adapter (os.MkdirAll + atomic
// rename-on-write).
type Store struct {
	scopeRoot string
}

// NewStore binds a Store to one scope's root directory.
func NewStore(scopeRoot string) *Store {
	return &Store{scopeRoot: scopeRoot}
}

func (s *Store) dir(sessionID string) string {
	return filepath.Join(s.scopeRoot, ".prizm", "checkpoints", sessionID)
}

func (s *Store) path(sessionID, checkpointID string) string {
	return filepath.Join(s.dir(sessionID), checkpointID+".json")
}

// Save writes snapshots for (sessionID, checkpointID). An empty map is not
// written to disk at all (and any prior file for this checkpoint is left
// alone — an explicit Delete is required to remove it).
func (s *Store) Save(sessionID, checkpointID string, snapshots map[string]string) error {
	if len(snapshots) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.dir(sessionID), 0o755); err != nil {
		return fmt.Errorf("checkpoint: create checkpoint dir: %w", err)
	}
	raw, err := json.Marshal(snapshots)
	if err != nil {
		return fmt.Errorf("checkpoint: encode snapshots: %w", err)
	}
	p := s.path(sessionID, checkpointID)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write snapshots: %w", err)
	}
	return os.Rename(tmp, p)
}

// Load returns the snapshot map for (sessionID, checkpointID). A missing or
// malformed file returns an empty map rather than an error.
func (s *Store) Load(sessionID, checkpointID string) map[string]string {
	raw, err := os.ReadFile(s.path(sessionID, checkpointID))
	if err != nil {
		return map[string]string{}
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]string{}
	}
	return out
}

// Delete removes the on-disk snapshot file for one checkpoint, if present.
func (s *Store) Delete(sessionID, checkpointID string) error {
	err := os.Remove(s.path(sessionID, checkpointID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: delete snapshots: %w", err)
	}
	return nil
}

// DeleteSession removes every checkpoint snapshot file for sessionID.
func (s *Store) DeleteSession(sessionID string) error {
	err := os.RemoveAll(s.dir(sessionID))
	if err != nil {
		return fmt.Errorf("checkpoint: delete session checkpoints: %w", err)
	}
	return nil
}
