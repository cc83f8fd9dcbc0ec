package scopestore

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/prizm-dev/prizm/internal/bus"
)

// Store bundles the four per-scope sub-stores the way the teacher's
// store.Stores bundles SessionStore/MemoryStore/CronStore/etc.
type Store struct {
	Documents *DocumentStore
	Todos     *TodoStore
	Clipboard *ClipboardStore
	Schedules *ScheduleStore

	root    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Scopes manages one Store per scope root, instantiated on first access.
type Scopes struct {
	mu     sync.Mutex
	stores map[string]*Store
	bus    *bus.Bus
}

// NewScopes constructs an empty registry of per-scope stores.
func NewScopes(eventBus *bus.Bus) *Scopes {
	return &Scopes{stores: make(map[string]*Store), bus: eventBus}
}

// Open returns the Store for scopeRoot, creating and starting its watcher on
// first use.
func (sc *Scopes) Open(scopeRoot string) (*Store, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if s, ok := sc.stores[scopeRoot]; ok {
		return s, nil
	}
	s, err := newStore(scopeRoot, sc.bus)
	if err != nil {
		return nil, err
	}
	sc.stores[scopeRoot] = s
	return s, nil
}

// CloseAll stops every open scope's watcher. Used at shutdown.
func (sc *Scopes) CloseAll() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for root, s := range sc.stores {
		s.Close()
		delete(sc.stores, root)
	}
}

func newStore(scopeRoot string, eventBus *bus.Bus) (*Store, error) {
	docs, err := newDocumentStore(scopeRoot, eventBus)
	if err != nil {
		return nil, err
	}
	todos, err := newTodoStore(scopeRoot, eventBus)
	if err != nil {
		return nil, err
	}
	clip, err := newClipboardStore(scopeRoot, eventBus)
	if err != nil {
		return nil, err
	}
	sched, err := newScheduleStore(scopeRoot, eventBus)
	if err != nil {
		return nil, err
	}

	s := &Store{Documents: docs, Todos: todos, Clipboard: clip, Schedules: sched, root: scopeRoot}
	if err := s.startWatch(); err != nil {
		// A missing watcher degrades to "no external-edit invalidation"
		// rather than blocking startup — mirrors the teacher's tolerant
		// config hot-reload failure handling.
		slog.Warn("scopestore: fsnotify watch failed, external edits won't be picked up", "scope", scopeRoot, "error", err)
	}
	return s, nil
}

func (s *Store) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("scopestore: new watcher: %w", err)
	}
	for _, dir := range []string{
		s.root,
		filepath.Join(s.root, "documents"),
	} {
		if err := w.Add(dir); err != nil {
			slog.Warn("scopestore: watch dir failed", "dir", dir, "error", err)
		}
	}
	s.watcher = w
	s.done = make(chan struct{})
	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("scopestore: watcher error", "scope", s.root, "error", err)
		}
	}
}

func (s *Store) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
		return
	}
	base := filepath.Base(ev.Name)
	switch {
	case filepath.Dir(ev.Name) == filepath.Join(s.root, "documents") && strings.HasSuffix(base, ".md"):
		id := strings.TrimSuffix(base, ".md")
		s.Documents.ReloadFromDisk(id)
	case base == "todos.yaml":
		s.Todos.ReloadFromDisk()
	case base == "schedules.yaml":
		s.Schedules.ReloadFromDisk()
	}
}

// Close stops the scope's filesystem watcher.
func (s *Store) Close() {
	if s.done != nil {
		close(s.done)
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
}
