// Package scheduler reconciles the schedules internal/scopestore persists
// into chat turns. One-off reminders fire once when their RemindAt arrives;
// cron-expression schedules are checked against gronx on every tick and can
// fire repeatedly. Grounded on the teacher's cmd/gateway_cron.go cron-lane
// handler, which routes a fired store.CronJob into a chat turn and publishes
// the outcome outbound — collapsed here into a direct chat.Runtime.SendMessage
// call since this module has no separate outbound channel bus to publish
// through.
package scheduler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/chat"
	"github.com/prizm-dev/prizm/internal/scopestore"
)

const tickInterval = 30 * time.Second

// Reconciler polls every known scope's ScheduleStore once per tick and
// delivers due schedules as chat messages into their bound session.
type Reconciler struct {
	dataDir string
	scopes  *scopestore.Scopes
	chat    *chat.Runtime
	eventBus *bus.Bus
	gron    gronx.Gronx

	mu    sync.Mutex
	fired map[string]time.Time
}

// New builds a Reconciler. dataDir is the same data directory runtimectx
// roots per-scope storage under (dataDir/scopes/<scope>).
func New(dataDir string, scopes *scopestore.Scopes, chatRuntime *chat.Runtime, eventBus *bus.Bus) *Reconciler {
	return &Reconciler{
		dataDir:  dataDir,
		scopes:   scopes,
		chat:     chatRuntime,
		eventBus: eventBus,
		gron:     gronx.New(),
		fired:    make(map[string]time.Time),
	}
}

// Run ticks until ctx is cancelled, reconciling every known scope's
// schedules on each tick.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcileAll(ctx)
		}
	}
}

func (r *Reconciler) reconcileAll(ctx context.Context) {
	root := filepath.Join(r.dataDir, "scopes")
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	now := time.Now().UTC()
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		scope := e.Name()
		store, err := r.scopes.Open(filepath.Join(root, scope))
		if err != nil {
			slog.Warn("scheduler: open scope store failed", "scope", scope, "error", err)
			continue
		}
		for _, sch := range store.Schedules.List() {
			r.maybeFire(ctx, scope, sch, now)
		}
	}
}

func (r *Reconciler) maybeFire(ctx context.Context, scope string, sch scopestore.Schedule, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case sch.RemindAt != nil:
		if now.Before(*sch.RemindAt) {
			return
		}
		if _, already := r.fired[sch.ID]; already {
			return
		}
		r.fire(ctx, scope, sch, bus.EventScheduleReminded)
		r.fired[sch.ID] = now

	case sch.CronExpr != "":
		minute := now.Truncate(time.Minute)
		if last, ok := r.fired[sch.ID]; ok && !last.Before(minute) {
			return
		}
		due, err := r.gron.IsDue(sch.CronExpr, now)
		if err != nil {
			slog.Warn("scheduler: invalid cron expression", "schedule", sch.ID, "expr", sch.CronExpr, "error", err)
			return
		}
		if !due {
			return
		}
		r.fire(ctx, scope, sch, bus.EventCronJobExecuted)
		r.fired[sch.ID] = minute
	}
}

// fire delivers sch into its bound session and emits successEvent on
// success, or EventCronJobFailed if delivery failed (used for both one-off
// reminders and cron schedules, since a reminder with no session to deliver
// into is a delivery failure the same way an unresolvable cron job is).
func (r *Reconciler) fire(ctx context.Context, scope string, sch scopestore.Schedule, successEvent string) {
	text := sch.Label
	if text == "" {
		text = "scheduled reminder"
	}
	if sch.SessionID == "" {
		slog.Warn("scheduler: schedule has no bound session, skipping", "schedule", sch.ID)
		r.emit(bus.EventCronJobFailed, scope, sch.ID)
		return
	}
	if err := r.chat.SendMessage(ctx, scope, sch.SessionID, text); err != nil {
		slog.Warn("scheduler: deliver schedule failed", "schedule", sch.ID, "session", sch.SessionID, "error", err)
		r.emit(bus.EventCronJobFailed, scope, sch.ID)
		return
	}
	r.emit(successEvent, scope, sch.ID)
}

func (r *Reconciler) emit(event, scope, scheduleID string) {
	if r.eventBus == nil {
		return
	}
	r.eventBus.Emit(event, map[string]interface{}{"scope": scope, "scheduleId": scheduleID})
}
