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

// clipboardCapacity bounds how many items a scope's clipboard keeps; the
// oldest is evicted once the cap is exceeded.
const clipboardCapacity = 50

// ClipboardStore persists a scope's clipboard under .prizm/clipboard/, per
// §6's persisted-state layout.
type ClipboardStore struct {
	mu    sync.Mutex
	path  string
	items []ClipboardItem
	bus   *bus.Bus
}

func newClipboardStore(scopeRoot string, eventBus *bus.Bus) (*ClipboardStore, error) {
	s := &ClipboardStore{
		path: filepath.Join(scopeRoot, ".prizm", "clipboard", "items.yaml"),
		bus:  eventBus,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ClipboardStore) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scopestore: read clipboard: %w", err)
	}
	var items []ClipboardItem
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("scopestore: decode clipboard: %w", err)
	}
	s.items = items
	return nil
}

// ReloadFromDisk re-reads the clipboard file. The scope file watcher does
// not call it.
func (s *ClipboardStore) ReloadFromDisk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.load()
}

func (s *ClipboardStore) save() error {
	raw, err := yaml.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("scopestore: encode clipboard: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("scopestore: create clipboard dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("scopestore: write clipboard: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// List returns items newest-first.
func (s *ClipboardStore) List() []ClipboardItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ClipboardItem, len(s.items))
	copy(out, s.items)
	return out
}

// Push adds a new clipboard entry, evicting the oldest beyond capacity.
func (s *ClipboardStore) Push(content string) (ClipboardItem, error) {
	item := ClipboardItem{ID: uuid.NewString(), Content: content, CreatedAt: time.Now().UTC()}
	s.mu.Lock()
	s.items = append([]ClipboardItem{item}, s.items...)
	if len(s.items) > clipboardCapacity {
		s.items = s.items[:clipboardCapacity]
	}
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return ClipboardItem{}, err
	}
	s.publish("added", item.ID)
	return item, nil
}

// Remove deletes an item by id.
func (s *ClipboardStore) Remove(id string) error {
	s.mu.Lock()
	idx := -1
	for i, it := range s.items {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return errs.New(errs.NotFound, "clipboard item not found: "+id)
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

func (s *ClipboardStore) publish(action, id string) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(bus.EventClipboardMutated, map[string]interface{}{"clipboardId": id, "action": action})
}
