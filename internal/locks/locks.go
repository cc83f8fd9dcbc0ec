// Package locks implements cooperative, session-scoped exclusion over
// (scope, resourceType, resourceId) triples. No teacher analogue exists —
// goclaw has no resource-lock subsystem — so this is built fresh in the
// teacher's idiom: a mutex-guarded map shaped like
// internal/tools/delegate.go's DelegateManager.active, and a time.Ticker
// reaper loop shaped like the teacher's periodic background loops.
package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/model"
)

func key(scope, resourceType, resourceID string) string {
	return fmt.Sprintf("%s\x00%s\x00%s", scope, resourceType, resourceID)
}

// Manager holds authoritative lock state in memory and sweeps expired
// entries on a timer.
type Manager struct {
	mu           sync.Mutex
	locks        map[string]*model.ResourceLock
	bus          *bus.Bus
	reapInterval time.Duration
}

// New constructs a Manager and, when eventBus is non-nil, subscribes it to
// agent:session.deleted so a deleted session's locks are swept automatically.
func New(eventBus *bus.Bus, reapInterval time.Duration) *Manager {
	if reapInterval <= 0 {
		reapInterval = 30 * time.Second
	}
	m := &Manager{
		locks:        make(map[string]*model.ResourceLock),
		bus:          eventBus,
		reapInterval: reapInterval,
	}
	if eventBus != nil {
		eventBus.Subscribe(bus.EventSessionDeleted, m.onSessionDeleted, "locks.onSessionDeleted")
	}
	return m
}

func (m *Manager) onSessionDeleted(ev bus.Event) error {
	payload, ok := ev.Payload.(map[string]interface{})
	if !ok {
		return nil
	}
	scope, _ := payload["scope"].(string)
	sessionID, _ := payload["sessionId"].(string)
	if scope == "" || sessionID == "" {
		return nil
	}
	m.ReleaseSessionLocks(scope, sessionID)
	return nil
}

// Run starts the expiry reaper; it returns when ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	t := time.NewTicker(m.reapInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.reapExpired()
		}
	}
}

func (m *Manager) reapExpired() {
	now := time.Now()
	m.mu.Lock()
	var expired []*model.ResourceLock
	for k, l := range m.locks {
		if l.Expired(now) {
			expired = append(expired, l)
			delete(m.locks, k)
		}
	}
	m.mu.Unlock()
	for _, l := range expired {
		m.publish(l, "expired")
	}
}

// AcquireResult is the outcome of Acquire.
type AcquireResult struct {
	Acquired bool
	HeldBy   *model.ResourceLock // set when Acquired is false
}

// Acquire attempts to claim a lock. If held by another, non-expired session,
// it returns the holder descriptor without granting the lock. An expired
// holder is silently replaced. Re-acquiring one's own lock just advances
// the heartbeat.
func (m *Manager) Acquire(scope, resourceType, resourceID, sessionID, reason string, ttlMs int64) AcquireResult {
	now := time.Now()
	k := key(scope, resourceType, resourceID)

	m.mu.Lock()
	existing, ok := m.locks[k]
	if ok && existing.SessionID != sessionID && !existing.Expired(now) {
		held := *existing
		m.mu.Unlock()
		return AcquireResult{Acquired: false, HeldBy: &held}
	}

	l := &model.ResourceLock{
		Scope: scope, ResourceType: resourceType, ResourceID: resourceID,
		SessionID: sessionID, AcquiredAt: now, LastHeartbeat: now,
		TTLMs: ttlMs, Reason: reason,
	}
	if ok && existing.SessionID == sessionID {
		l.AcquiredAt = existing.AcquiredAt
	}
	m.locks[k] = l
	m.mu.Unlock()

	m.publish(l, "acquired")
	return AcquireResult{Acquired: true}
}

// Heartbeat refreshes LastHeartbeat if sessionID owns the lock; otherwise
// it is a no-op.
func (m *Manager) Heartbeat(scope, resourceType, resourceID, sessionID string) {
	k := key(scope, resourceType, resourceID)
	m.mu.Lock()
	l, ok := m.locks[k]
	if ok && l.SessionID == sessionID {
		l.LastHeartbeat = time.Now()
	}
	m.mu.Unlock()
}

// Release drops the lock iff sessionID owns it. Idempotent.
func (m *Manager) Release(scope, resourceType, resourceID, sessionID string) {
	k := key(scope, resourceType, resourceID)
	m.mu.Lock()
	l, ok := m.locks[k]
	if !ok || l.SessionID != sessionID {
		m.mu.Unlock()
		return
	}
	delete(m.locks, k)
	m.mu.Unlock()
	m.publish(l, "released")
}

// ForceRelease drops the lock regardless of ownership and publishes a
// "force_released" lock-changed event naming the previous holder. It
// returns the dropped lock, or nil if none was held.
func (m *Manager) ForceRelease(scope, resourceType, resourceID string) *model.ResourceLock {
	k := key(scope, resourceType, resourceID)
	m.mu.Lock()
	l, ok := m.locks[k]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.locks, k)
	m.mu.Unlock()
	m.publish(l, "force_released")
	return l
}

// GetLock returns the current holder, or nil. An expired lock is treated as
// absent and garbage-collected on the way out.
func (m *Manager) GetLock(scope, resourceType, resourceID string) *model.ResourceLock {
	k := key(scope, resourceType, resourceID)
	now := time.Now()

	m.mu.Lock()
	l, ok := m.locks[k]
	if ok && l.Expired(now) {
		delete(m.locks, k)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	held := *l
	return &held
}

// ListSessionLocks returns every non-expired lock owned by sessionID in scope.
func (m *Manager) ListSessionLocks(scope, sessionID string) []*model.ResourceLock {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ResourceLock
	for _, l := range m.locks {
		if l.Scope == scope && l.SessionID == sessionID && !l.Expired(now) {
			held := *l
			out = append(out, &held)
		}
	}
	return out
}

// ReleaseSessionLocks releases every lock owned by sessionID in scope,
// publishing one resource:lock.changed event per released lock.
func (m *Manager) ReleaseSessionLocks(scope, sessionID string) {
	m.mu.Lock()
	var released []*model.ResourceLock
	for k, l := range m.locks {
		if l.Scope == scope && l.SessionID == sessionID {
			released = append(released, l)
			delete(m.locks, k)
		}
	}
	m.mu.Unlock()
	for _, l := range released {
		m.publish(l, "unlocked")
	}
}

func (m *Manager) publish(l *model.ResourceLock, action string) {
	if m.bus == nil {
		return
	}
	m.bus.Emit(bus.EventLockChanged, map[string]interface{}{
		"scope": l.Scope, "resourceType": l.ResourceType, "resourceId": l.ResourceID,
		"sessionId": l.SessionID, "action": action,
	})
}
