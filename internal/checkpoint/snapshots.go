package checkpoint

import "sync"

// SnapshotCollector records each touched path's pre-turn content, first
// capture wins. Guarded the way the teacher's sessions.Manager guards its
// sessions map: one mutex, plain map underneath.
type SnapshotCollector struct {
	mu     sync.Mutex
	bySess map[string]map[string]string
}

// NewSnapshotCollector constructs an empty collector.
func NewSnapshotCollector() *SnapshotCollector {
	return &SnapshotCollector{bySess: make(map[string]map[string]string)}
}

// Init resets sessionID's snapshot map to empty, ready to collect a new turn.
func (c *SnapshotCollector) Init(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bySess[sessionID] = make(map[string]string)
}

// Capture records path's pre-image for sessionID the first time it is seen
// this turn. A nil content pointer is stored as empty string. Writes to a
// session with no initialized collector are silent no-ops.
func (c *SnapshotCollector) Capture(sessionID, path string, content *string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snaps, ok := c.bySess[sessionID]
	if !ok {
		return
	}
	if _, exists := snaps[path]; exists {
		return
	}
	if content == nil {
		snaps[path] = ""
	} else {
		snaps[path] = *content
	}
}

// Flush returns sessionID's collected snapshots and clears them; a second
// call before the next Init returns an empty map.
func (c *SnapshotCollector) Flush(sessionID string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	snaps, ok := c.bySess[sessionID]
	if !ok {
		return map[string]string{}
	}
	delete(c.bySess, sessionID)
	return snaps
}
