package scopestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prizm-dev/prizm/internal/errs"
)

func TestScheduleStoreCreateUpdateDelete(t *testing.T) {
	s, err := newScheduleStore(t.TempDir(), nil)
	require.NoError(t, err)

	sch, err := s.Create("Morning standup", "0 9 * * *", nil, "sess-1")
	require.NoError(t, err)
	require.Len(t, s.List(), 1)

	newLabel := "Daily standup"
	updated, err := s.Update(sch.ID, &newLabel, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Daily standup", updated.Label)
	assert.Equal(t, "0 9 * * *", updated.CronExpr)

	require.NoError(t, s.Delete(sch.ID))
	assert.Empty(t, s.List())
}

func TestScheduleStoreUpdateMissingReturnsNotFound(t *testing.T) {
	s, err := newScheduleStore(t.TempDir(), nil)
	require.NoError(t, err)

	newLabel := "x"
	_, err = s.Update("missing", &newLabel, nil, nil)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestScheduleStoreDeleteMissingReturnsNotFound(t *testing.T) {
	s, err := newScheduleStore(t.TempDir(), nil)
	require.NoError(t, err)

	err = s.Delete("missing")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestScheduleStoreRemindAtUpdatable(t *testing.T) {
	s, err := newScheduleStore(t.TempDir(), nil)
	require.NoError(t, err)
	sch, err := s.Create("Reminder", "", nil, "sess-1")
	require.NoError(t, err)

	at := time.Now().UTC().Add(time.Hour)
	updated, err := s.Update(sch.ID, nil, nil, &at)
	require.NoError(t, err)
	require.NotNil(t, updated.RemindAt)
	assert.True(t, updated.RemindAt.Equal(at))
}

func TestScheduleStorePersistsAcrossReload(t *testing.T) {
	root := t.TempDir()
	s, err := newScheduleStore(root, nil)
	require.NoError(t, err)
	_, err = s.Create("Weekly review", "0 10 * * 1", nil, "sess-1")
	require.NoError(t, err)

	reopened, err := newScheduleStore(root, nil)
	require.NoError(t, err)

	list := reopened.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Weekly review", list[0].Label)
}
