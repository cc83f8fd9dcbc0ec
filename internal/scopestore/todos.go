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

// TodoStore persists a scope's todo list as a single YAML file.
type TodoStore struct {
	mu    sync.Mutex
	path  string
	items []TodoItem
	bus   *bus.Bus
}

func newTodoStore(scopeRoot string, eventBus *bus.Bus) (*TodoStore, error) {
	s := &TodoStore{path: filepath.Join(scopeRoot, "todos.yaml"), bus: eventBus}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TodoStore) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scopestore: read todos: %w", err)
	}
	var items []TodoItem
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("scopestore: decode todos: %w", err)
	}
	s.items = items
	return nil
}

// ReloadFromDisk re-reads the whole todo list; used on external file edits.
func (s *TodoStore) ReloadFromDisk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.load()
}

func (s *TodoStore) save() error {
	raw, err := yaml.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("scopestore: encode todos: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("scopestore: create todos dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("scopestore: write todos: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// List returns a copy of the current items.
func (s *TodoStore) List() []TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TodoItem, len(s.items))
	copy(out, s.items)
	return out
}

// Add appends a new item and emits todo:mutated.
func (s *TodoStore) Add(text string) (TodoItem, error) {
	now := time.Now().UTC()
	item := TodoItem{ID: uuid.NewString(), Text: text, CreatedAt: now, UpdatedAt: now}
	s.mu.Lock()
	s.items = append(s.items, item)
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return TodoItem{}, err
	}
	s.publish("added", item.ID)
	return item, nil
}

// SetDone flips an item's done flag and emits todo:mutated.
func (s *TodoStore) SetDone(id string, done bool) error {
	s.mu.Lock()
	idx := indexOfTodo(s.items, id)
	if idx < 0 {
		s.mu.Unlock()
		return errs.New(errs.NotFound, "todo item not found: "+id)
	}
	s.items[idx].Done = done
	s.items[idx].UpdatedAt = time.Now().UTC()
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish("updated", id)
	return nil
}

// Remove deletes an item by id and emits todo:mutated.
func (s *TodoStore) Remove(id string) error {
	s.mu.Lock()
	idx := indexOfTodo(s.items, id)
	if idx < 0 {
		s.mu.Unlock()
		return errs.New(errs.NotFound, "todo item not found: "+id)
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish("removed", id)
	return nil
}

func indexOfTodo(items []TodoItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s *TodoStore) publish(action, id string) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(bus.EventTodoMutated, map[string]interface{}{"todoId": id, "action": action})
}
