// Package scopestore is the adapter over the on-disk, per-scope workspace:
// documents, todo lists, clipboard items, and schedules. Documents are
// Markdown files with a YAML frontmatter block; todo lists, schedules and
// clipboard items are plain YAML files. Grounded on the teacher's
// internal/store/stores.go Stores container and internal/store/file's
// wrapper-over-manager pattern, generalized from sessions to these four
// entity kinds.
package scopestore

import "time"

// Document is a Markdown note living under a scope root.
type Document struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Tags      []string  `yaml:"tags,omitempty"`
	CreatedAt time.Time `yaml:"createdAt"`
	UpdatedAt time.Time `yaml:"updatedAt"`
	Content   string    `yaml:"-"`
}

// TodoItem is one entry in a scope's todo list.
type TodoItem struct {
	ID        string    `yaml:"id"`
	Text      string    `yaml:"text"`
	Done      bool      `yaml:"done"`
	CreatedAt time.Time `yaml:"createdAt"`
	UpdatedAt time.Time `yaml:"updatedAt"`
}

// ClipboardItem is an ephemeral scope-scoped clipboard entry.
type ClipboardItem struct {
	ID        string    `yaml:"id"`
	Content   string    `yaml:"content"`
	CreatedAt time.Time `yaml:"createdAt"`
}

// Schedule is a reminder or recurring trigger bound to a scope.
type Schedule struct {
	ID         string     `yaml:"id"`
	Label      string     `yaml:"label"`
	CronExpr   string     `yaml:"cronExpr,omitempty"`
	RemindAt   *time.Time `yaml:"remindAt,omitempty"`
	SessionID  string     `yaml:"sessionId,omitempty"`
	CreatedAt  time.Time  `yaml:"createdAt"`
	UpdatedAt  time.Time  `yaml:"updatedAt"`
}
