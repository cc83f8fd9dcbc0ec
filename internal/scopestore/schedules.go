package scopestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/errs"
)

// ScheduleStore persists one-off reminders and cron-style triggers bound to
// a scope, consumed by the cron/schedule reconciliation side-effect handler.
type ScheduleStore struct {
	mu    sync.Mutex
	path  string
	items []Schedule
	bus   *bus.Bus
}

func newScheduleStore(scopeRoot string, eventBus *bus.Bus) (*ScheduleStore, error) {
	s := &ScheduleStore{path: filepath.Join(scopeRoot, "schedules.yaml"), bus: eventBus}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ScheduleStore) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scopestore: read schedules: %w", err)
	}
	var items []Schedule
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("scopestore: decode schedules: %w", err)
	}
	s.items = items
	return nil
}

// ReloadFromDisk re-reads the schedules file; used on external file edits.
func (s *ScheduleStore) ReloadFromDisk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.load()
}

func (s *ScheduleStore) save() error {
	raw, err := yaml.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("scopestore: encode schedules: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("scopestore: create schedules dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("scopestore: write schedules: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// List returns all schedules.
func (s *ScheduleStore) List() []Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Schedule, len(s.items))
	copy(out, s.items)
	return out
}

// Create adds a schedule and emits schedule:created.
func (s *ScheduleStore) Create(label, cronExpr string, remindAt *time.Time, sessionID string) (Schedule, error) {
	now := time.Now().UTC()
	sch := Schedule{
		ID: uuid.NewString(), Label: label, CronExpr: cronExpr, RemindAt: remindAt,
		SessionID: sessionID, CreatedAt: now, UpdatedAt: now,
	}
	s.mu.Lock()
	s.items = append(s.items, sch)
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return Schedule{}, err
	}
	s.publish(bus.EventScheduleCreated, sch.ID)
	return sch, nil
}

// Update mutates an existing schedule's label/cron/remindAt and emits schedule:updated.
func (s *ScheduleStore) Update(id string, label, cronExpr *string, remindAt *time.Time) (Schedule, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return Schedule{}, errs.New(errs.NotFound, "schedule not found: "+id)
	}
	if label != nil {
		s.items[idx].Label = *label
	}
	if cronExpr != nil {
		s.items[idx].CronExpr = *cronExpr
	}
	if remindAt != nil {
		s.items[idx].RemindAt = remindAt
	}
	s.items[idx].UpdatedAt = time.Now().UTC()
	out := s.items[idx]
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return Schedule{}, err
	}
	s.publish(bus.EventScheduleUpdated, id)
	return out, nil
}

// Delete removes a schedule and emits schedule:deleted.
func (s *ScheduleStore) Delete(id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return errs.New(errs.NotFound, "schedule not found: "+id)
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(bus.EventScheduleDeleted, id)
	return nil
}

func (s *ScheduleStore) indexOf(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s *ScheduleStore) publish(event, id string) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(event, map[string]interface{}{"scheduleId": id})
}
