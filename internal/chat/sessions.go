package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prizm-dev/prizm/internal/model"
)

// MemoryStore is an in-process SessionStore keyed the same way the
// teacher's sessions.Manager keys its map: "agent:{scope}:{sessionId}".
// Persistence beyond process lifetime is out of scope here the same way
// it was optional in the teacher (NewManager(storage="") skips disk I/O);
// a durable implementation can satisfy the same interface independently.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.AgentSession
}

// NewMemoryStore builds an empty session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*model.AgentSession)}
}

func sessionStoreKey(scope, sessionID string) string {
	return fmt.Sprintf("agent:%s:%s", scope, sessionID)
}

// GetOrCreate returns the existing session for scope/sessionID, or creates
// an empty interactive one.
func (s *MemoryStore) GetOrCreate(scope, sessionID string) *model.AgentSession {
	key := sessionStoreKey(scope, sessionID)

	s.mu.RLock()
	sess, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		return sess
	}
	sess = &model.AgentSession{
		ID:        sessionID,
		Scope:     scope,
		Kind:      model.SessionInteractive,
		StartedAt: time.Now(),
	}
	s.sessions[key] = sess
	return sess
}

// Get returns the session for scope/sessionID, if one exists.
func (s *MemoryStore) Get(scope, sessionID string) (*model.AgentSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionStoreKey(scope, sessionID)]
	return sess, ok
}

// Save persists sess in place. The in-memory store already holds the live
// pointer for sessions created via GetOrCreate, so Save mainly matters for
// registering one created elsewhere (e.g. a background session handed over
// from internal/background).
func (s *MemoryStore) Save(sess *model.AgentSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionStoreKey(sess.Scope, sess.ID)] = sess
}

// Delete removes a session. Releasing any locks held against its id is the
// caller's responsibility (see internal/locks).
func (s *MemoryStore) Delete(scope, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionStoreKey(scope, sessionID))
}

// ListByScope returns every session recorded under scope, in no particular
// order. Used by the sessions_list/sessions_send tools, which need to scan
// a scope's sessions rather than address one by id directly.
func (s *MemoryStore) ListByScope(scope string) []*model.AgentSession {
	prefix := sessionStoreKey(scope, "")
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.AgentSession
	for key, sess := range s.sessions {
		if strings.HasPrefix(key, prefix) {
			out = append(out, sess)
		}
	}
	return out
}
