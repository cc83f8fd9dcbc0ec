package locks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prizm-dev/prizm/internal/bus"
)

func TestAcquireRejectsWhileHeldByAnotherSession(t *testing.T) {
	m := New(nil, time.Minute)

	res := m.Acquire("scope1", "document", "doc-1", "sess-a", "editing", 60_000)
	require.True(t, res.Acquired)

	res = m.Acquire("scope1", "document", "doc-1", "sess-b", "editing", 60_000)
	assert.False(t, res.Acquired)
	require.NotNil(t, res.HeldBy)
	assert.Equal(t, "sess-a", res.HeldBy.SessionID)
}

func TestAcquireOwnLockAdvancesHeartbeatNotAcquiredAt(t *testing.T) {
	m := New(nil, time.Minute)

	first := m.Acquire("scope1", "document", "doc-1", "sess-a", "", 60_000)
	require.True(t, first.Acquired)
	original := m.GetLock("scope1", "document", "doc-1")
	require.NotNil(t, original)

	second := m.Acquire("scope1", "document", "doc-1", "sess-a", "", 60_000)
	require.True(t, second.Acquired)
	reacquired := m.GetLock("scope1", "document", "doc-1")
	require.NotNil(t, reacquired)
	assert.Equal(t, original.AcquiredAt, reacquired.AcquiredAt)
}

func TestAcquireReplacesExpiredHolder(t *testing.T) {
	m := New(nil, time.Minute)

	res := m.Acquire("scope1", "document", "doc-1", "sess-a", "", 1)
	require.True(t, res.Acquired)

	time.Sleep(5 * time.Millisecond)

	res = m.Acquire("scope1", "document", "doc-1", "sess-b", "", 60_000)
	assert.True(t, res.Acquired)
	held := m.GetLock("scope1", "document", "doc-1")
	require.NotNil(t, held)
	assert.Equal(t, "sess-b", held.SessionID)
}

// Literal scenario 6: session deletion releases locks.
func TestSessionDeletionReleasesLocks(t *testing.T) {
	eventBus := bus.New()
	m := New(eventBus, time.Minute)

	require.True(t, m.Acquire("scope1", "document", "doc-1", "sess-del", "", 60_000).Acquired)
	require.True(t, m.Acquire("scope1", "todo_list", "list-1", "sess-del", "", 60_000).Acquired)

	var changed []map[string]interface{}
	eventBus.Subscribe(bus.EventLockChanged, func(ev bus.Event) error {
		payload, _ := ev.Payload.(map[string]interface{})
		changed = append(changed, payload)
		return nil
	}, "test")

	eventBus.Emit(bus.EventSessionDeleted, map[string]interface{}{
		"scope": "scope1", "sessionId": "sess-del",
	})

	assert.Empty(t, m.ListSessionLocks("scope1", "sess-del"))
	require.Len(t, changed, 2)
	for _, c := range changed {
		assert.Equal(t, "unlocked", c["action"])
	}
}

func TestReleaseIsNoOpForNonOwner(t *testing.T) {
	m := New(nil, time.Minute)
	require.True(t, m.Acquire("scope1", "document", "doc-1", "sess-a", "", 60_000).Acquired)

	m.Release("scope1", "document", "doc-1", "sess-b")

	held := m.GetLock("scope1", "document", "doc-1")
	require.NotNil(t, held)
	assert.Equal(t, "sess-a", held.SessionID)
}

func TestReleaseSessionLocksIsIdempotentAndScoped(t *testing.T) {
	m := New(nil, time.Minute)
	require.True(t, m.Acquire("scope1", "document", "doc-1", "sess-a", "", 60_000).Acquired)
	require.True(t, m.Acquire("scope2", "document", "doc-1", "sess-a", "", 60_000).Acquired)

	m.ReleaseSessionLocks("scope1", "sess-a")

	assert.Empty(t, m.ListSessionLocks("scope1", "sess-a"))
	assert.Len(t, m.ListSessionLocks("scope2", "sess-a"), 1)

	// Idempotent: releasing again is a no-op, not an error.
	m.ReleaseSessionLocks("scope1", "sess-a")
	assert.Empty(t, m.ListSessionLocks("scope1", "sess-a"))
}

func TestReapExpiredRemovesStaleLocks(t *testing.T) {
	m := New(nil, time.Minute)
	require.True(t, m.Acquire("scope1", "document", "doc-1", "sess-a", "", 1).Acquired)
	time.Sleep(5 * time.Millisecond)

	m.reapExpired()

	assert.Nil(t, m.GetLock("scope1", "document", "doc-1"))
}
