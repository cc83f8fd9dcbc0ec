// Package workflow implements the Workflow Runner: a linear step executor
// over a WorkflowDef that persists resumable run records. Grounded on the
// teacher's config-driven declarative style for definition parsing and on
// internal/memory's sqlite-backed store for run persistence.
package workflow

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/prizm-dev/prizm/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists WorkflowRun records in sqlite, mirroring
// internal/memory.Store's open-and-migrate shape.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and brings its
// schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("workflow: open sqlite db: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("workflow: load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("workflow: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("workflow: create migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("workflow: migrate up: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a run record along with the definition it was
// started from, so resume can re-parse the same steps. A run already stored
// as cancelled is left unchanged.
func (s *Store) Save(run *model.WorkflowRun, def *model.WorkflowDef) error {
	stepResults, err := json.Marshal(run.StepResults)
	if err != nil {
		return fmt.Errorf("workflow: marshal step results: %w", err)
	}
	defJSON, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("workflow: marshal def: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO workflow_runs (id, scope, workflow_name, status, def, step_results, current_step_idx, resume_token, approve_prompt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			step_results=excluded.step_results,
			current_step_idx=excluded.current_step_idx,
			resume_token=excluded.resume_token,
			approve_prompt=excluded.approve_prompt,
			updated_at=excluded.updated_at
		WHERE workflow_runs.status <> 'cancelled'
	`, run.ID, run.Scope, run.WorkflowName, string(run.Status), string(defJSON), string(stepResults),
		run.CurrentStepIdx, run.ResumeToken, run.ApprovePrompt, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("workflow: save run: %w", err)
	}
	return nil
}

// GetRunByID loads a run by id. Returns (nil, nil, nil) if not found.
func (s *Store) GetRunByID(id string) (*model.WorkflowRun, *model.WorkflowDef, error) {
	row := s.db.QueryRow(`SELECT id, scope, workflow_name, status, def, step_results, current_step_idx, resume_token, approve_prompt, created_at, updated_at FROM workflow_runs WHERE id = ?`, id)
	return scanRun(row)
}

// GetRunByResumeToken loads the run currently paused on token. Returns
// (nil, nil, nil) if no run holds that token.
func (s *Store) GetRunByResumeToken(token string) (*model.WorkflowRun, *model.WorkflowDef, error) {
	row := s.db.QueryRow(`SELECT id, scope, workflow_name, status, def, step_results, current_step_idx, resume_token, approve_prompt, created_at, updated_at FROM workflow_runs WHERE resume_token = ? AND status = ?`, token, string(model.RunPaused))
	return scanRun(row)
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scannable) (*model.WorkflowRun, *model.WorkflowDef, error) {
	var run model.WorkflowRun
	var status, defJSON, stepResults string
	if err := row.Scan(&run.ID, &run.Scope, &run.WorkflowName, &status, &defJSON, &stepResults,
		&run.CurrentStepIdx, &run.ResumeToken, &run.ApprovePrompt, &run.CreatedAt, &run.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("workflow: scan run: %w", err)
	}
	run.Status = model.RunStatus(status)
	if err := json.Unmarshal([]byte(stepResults), &run.StepResults); err != nil {
		return nil, nil, fmt.Errorf("workflow: unmarshal step results: %w", err)
	}
	var def model.WorkflowDef
	if err := json.Unmarshal([]byte(defJSON), &def); err != nil {
		return nil, nil, fmt.Errorf("workflow: unmarshal def: %w", err)
	}
	return &run, &def, nil
}

// ListRuns returns runs matching the given filters, most recently updated
// first. scope and status are ignored when empty; limit <= 0 means no cap.
func (s *Store) ListRuns(scope, status string, limit int) ([]*model.WorkflowRun, error) {
	query := `SELECT id, scope, workflow_name, status, def, step_results, current_step_idx, resume_token, approve_prompt, created_at, updated_at FROM workflow_runs WHERE 1=1`
	var args []interface{}
	if scope != "" {
		query += ` AND scope = ?`
		args = append(args, scope)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("workflow: list runs: %w", err)
	}
	defer rows.Close()

	var out []*model.WorkflowRun
	for rows.Next() {
		run, _, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// PruneRuns deletes terminal runs whose last update is older than
// retentionMs, returning the number removed.
func (s *Store) PruneRuns(retentionMs int64) (int, error) {
	cutoff := time.Now().Add(-time.Duration(retentionMs) * time.Millisecond)
	res, err := s.db.Exec(`
		DELETE FROM workflow_runs
		WHERE updated_at < ?
		AND status IN (?, ?, ?)
	`, cutoff, string(model.RunCompleted), string(model.RunFailed), string(model.RunCancelled))
	if err != nil {
		return 0, fmt.Errorf("workflow: prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteRun removes a single run by id, irrespective of status.
func (s *Store) DeleteRun(id string) error {
	_, err := s.db.Exec(`DELETE FROM workflow_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("workflow: delete run: %w", err)
	}
	return nil
}
