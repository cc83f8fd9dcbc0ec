package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/config"
	"github.com/prizm-dev/prizm/internal/runtimectx"
	"github.com/prizm-dev/prizm/internal/scopestore"
)

func newTestReconciler(t *testing.T) (*Reconciler, *runtimectx.Context) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Agents.Defaults.Workspace = filepath.Join(dir, "workspace")

	rt, err := runtimectx.New(cfg)
	if err != nil {
		t.Fatalf("runtimectx.New: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	return New(cfg.DataDirPath(), rt.Scopes, rt.Chat, rt.Bus), rt
}

func TestMaybeFire_RemindAtFiresOnceThenDedupes(t *testing.T) {
	r, rt := newTestReconciler(t)

	fired := make(chan bus.Event, 4)
	rt.Bus.Subscribe(bus.EventScheduleReminded, func(ev bus.Event) error {
		fired <- ev
		return nil
	}, "test")

	past := time.Now().UTC().Add(-time.Minute)
	sch := schedule("r1", "", &past, "sess-1")

	r.maybeFire(context.Background(), "scope-a", sch, time.Now().UTC())
	r.maybeFire(context.Background(), "scope-a", sch, time.Now().UTC())

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("expected one schedule:reminded event")
	}

	select {
	case ev := <-fired:
		t.Fatalf("expected no second fire, got %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMaybeFire_RemindAtInFutureDoesNotFire(t *testing.T) {
	r, rt := newTestReconciler(t)

	fired := make(chan bus.Event, 1)
	rt.Bus.Subscribe(bus.EventScheduleReminded, func(ev bus.Event) error {
		fired <- ev
		return nil
	}, "test")

	future := time.Now().UTC().Add(time.Hour)
	sch := schedule("r2", "", &future, "sess-1")

	r.maybeFire(context.Background(), "scope-a", sch, time.Now().UTC())

	select {
	case ev := <-fired:
		t.Fatalf("expected no fire for a future reminder, got %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMaybeFire_CronExprFiresOncePerMinute(t *testing.T) {
	r, rt := newTestReconciler(t)

	fired := make(chan bus.Event, 4)
	rt.Bus.Subscribe(bus.EventCronJobExecuted, func(ev bus.Event) error {
		fired <- ev
		return nil
	}, "test")

	sch := schedule("c1", "* * * * *", nil, "sess-1")
	now := time.Now().UTC()

	r.maybeFire(context.Background(), "scope-a", sch, now)
	r.maybeFire(context.Background(), "scope-a", sch, now.Add(10*time.Second))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("expected one cron:job.executed event")
	}

	select {
	case ev := <-fired:
		t.Fatalf("expected no second fire within the same minute, got %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMaybeFire_InvalidCronExprIsIgnored(t *testing.T) {
	r, rt := newTestReconciler(t)

	fired := make(chan bus.Event, 1)
	rt.Bus.Subscribe(bus.EventCronJobExecuted, func(ev bus.Event) error {
		fired <- ev
		return nil
	}, "test")

	sch := schedule("c2", "not a cron expr", nil, "sess-1")
	r.maybeFire(context.Background(), "scope-a", sch, time.Now().UTC())

	select {
	case ev := <-fired:
		t.Fatalf("expected no fire for an invalid cron expression, got %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func schedule(id, cronExpr string, remindAt *time.Time, sessionID string) scopestore.Schedule {
	return scopestore.Schedule{ID: id, CronExpr: cronExpr, RemindAt: remindAt, SessionID: sessionID}
}
