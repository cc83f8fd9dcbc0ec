package scopestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/errs"
)

// DocumentStore persists Documents as "<docsDir>/<id>.md" files with a YAML
// frontmatter header, caching decoded documents in memory the way the
// teacher's sessions.Manager caches Session values over its on-disk log.
type DocumentStore struct {
	mu   sync.RWMutex
	root string
	docs map[string]*Document
	bus  *bus.Bus
}

func newDocumentStore(scopeRoot string, eventBus *bus.Bus) (*DocumentStore, error) {
	dir := filepath.Join(scopeRoot, "documents")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("scopestore: create documents dir: %w", err)
	}
	s := &DocumentStore{root: dir, docs: make(map[string]*Document), bus: eventBus}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DocumentStore) path(id string) string {
	return filepath.Join(s.root, id+".md")
}

func (s *DocumentStore) loadAll() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("scopestore: list documents: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		doc, err := s.readFile(filepath.Join(s.root, e.Name()))
		if err != nil {
			continue // tolerate one corrupt file; doesn't block the rest
		}
		s.docs[doc.ID] = doc
	}
	return nil
}

func (s *DocumentStore) readFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	body, err := decodeFrontmatter(raw, &doc)
	if err != nil {
		return nil, err
	}
	doc.Content = body
	return &doc, nil
}

// ReloadFromDisk re-reads id from disk, used when fsnotify observes an
// external edit to its file.
func (s *DocumentStore) ReloadFromDisk(id string) {
	doc, err := s.readFile(s.path(id))
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		delete(s.docs, id)
		return
	}
	s.docs[id] = doc
}

// Get returns a copy of the document, or a NotFound error.
func (s *DocumentStore) Get(id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return Document{}, errs.New(errs.NotFound, "document not found: "+id)
	}
	return *d, nil
}

// List returns all documents sorted by UpdatedAt descending.
func (s *DocumentStore) List() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// Create writes a new document and emits document:saved.
func (s *DocumentStore) Create(title, content string, tags []string) (Document, error) {
	now := time.Now().UTC()
	doc := Document{
		ID: uuid.NewString(), Title: title, Tags: tags,
		CreatedAt: now, UpdatedAt: now, Content: content,
	}
	if err := s.write(&doc); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	s.docs[doc.ID] = &doc
	s.mu.Unlock()
	s.publish(bus.EventDocumentSaved, doc.ID, "created")
	return doc, nil
}

// Update overwrites title/content/tags for an existing document and emits
// document:saved.
func (s *DocumentStore) Update(id string, title, content *string, tags []string) (Document, error) {
	s.mu.Lock()
	d, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()
		return Document{}, errs.New(errs.NotFound, "document not found: "+id)
	}
	updated := *d
	if title != nil {
		updated.Title = *title
	}
	if content != nil {
		updated.Content = *content
	}
	if tags != nil {
		updated.Tags = tags
	}
	updated.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	if err := s.write(&updated); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	s.docs[id] = &updated
	s.mu.Unlock()
	s.publish(bus.EventDocumentSaved, id, "updated")
	return updated, nil
}

// Delete removes the document's file and cache entry, emitting document:deleted.
func (s *DocumentStore) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.docs[id]
	delete(s.docs, id)
	s.mu.Unlock()
	if !ok {
		return errs.New(errs.NotFound, "document not found: "+id)
	}
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("scopestore: delete document file: %w", err)
	}
	s.publish(bus.EventDocumentDeleted, id, "deleted")
	return nil
}

// Restore writes back a prior snapshot of doc (used by checkpoint rollback)
// without publishing document:saved — rollback emits its own aggregate event.
func (s *DocumentStore) Restore(doc Document) error {
	if err := s.write(&doc); err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[doc.ID] = &doc
	s.mu.Unlock()
	return nil
}

func (s *DocumentStore) write(doc *Document) error {
	raw, err := encodeFrontmatter(doc, doc.Content)
	if err != nil {
		return err
	}
	tmp := s.path(doc.ID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("scopestore: write document: %w", err)
	}
	if err := os.Rename(tmp, s.path(doc.ID)); err != nil {
		return fmt.Errorf("scopestore: finalize document write: %w", err)
	}
	return nil
}

func (s *DocumentStore) publish(event, id, action string) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(event, map[string]interface{}{"documentId": id, "action": action})
}
