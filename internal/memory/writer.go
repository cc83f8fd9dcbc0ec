package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/model"
)

// dedupThreshold is the cosine-distance cutoff below which a candidate is
// considered a near-duplicate of an existing memory.
const dedupThreshold = 0.08

// Judge decides whether two memory contents describe the same fact. A nil
// Judge means the writer always takes the vector-only fallback path.
type Judge interface {
	JudgeSame(ctx context.Context, newContent, existingContent string) (bool, error)
}

// Writer implements processMemCell/undoDedup/deleteMemoriesByGroupId(Prefix)
// against a Store, following the routing and dedup rules named in the
// spec's memory-writer contract.
type Writer struct {
	db       *sql.DB
	embedder Embedder
	judge    Judge
	bus      *bus.Bus
}

// NewWriter constructs a Writer over store's database. judge may be nil to
// force the vector-only dedup fallback.
func NewWriter(store *Store, embedder Embedder, judge Judge, eventBus *bus.Bus) *Writer {
	return &Writer{db: store.db, embedder: embedder, judge: judge, bus: eventBus}
}

// ProcessMemCell routes, dedups, and inserts (or suppresses) one memory
// cell. It returns the inserted memory id (empty if suppressed) and the
// dedup log id (empty if inserted without suppression).
func (w *Writer) ProcessMemCell(ctx context.Context, cell MemCell, routing Routing) (memoryID, dedupLogID string, err error) {
	group := groupID(cell.Type, routing)
	vec, err := w.embedder.Embed(ctx, cell.Content)
	if err != nil {
		return "", "", fmt.Errorf("memory: embed: %w", err)
	}

	if cell.Type == TypeEventLog {
		id, err := w.insert(cell, group, vec)
		return id, "", err
	}

	nearest, dist, found, err := w.nearestInGroup(group, vec)
	if err != nil {
		return "", "", err
	}

	if found && dist <= dedupThreshold {
		same, reasoning := true, "vector-only"
		if w.judge != nil {
			same, err = w.judge.JudgeSame(ctx, cell.Content, nearest.Content)
			if err != nil {
				return "", "", fmt.Errorf("memory: judge: %w", err)
			}
			if same {
				reasoning = "SAME"
			}
		}
		if same {
			logID, err := w.logDedup(nearest, cell, group, dist, reasoning)
			if err != nil {
				return "", "", err
			}
			if err := w.touchUpdatedAt(nearest.ID); err != nil {
				return "", "", err
			}
			return "", logID, nil
		}
	}

	id, err := w.insert(cell, group, vec)
	if err != nil {
		return "", "", err
	}
	if cell.Type == TypeDocumentScene {
		w.publishMemoryUpdated(group)
	}
	return id, "", nil
}

func (w *Writer) publishMemoryUpdated(group string) {
	if w.bus == nil {
		return
	}
	w.bus.Emit(bus.EventDocumentMemoryUpdated, map[string]interface{}{"groupId": group})
}

func (w *Writer) insert(cell MemCell, group string, vec []float32) (string, error) {
	now := time.Now().UTC()
	id := uuid.NewString()
	embJSON, err := json.Marshal(vec)
	if err != nil {
		return "", fmt.Errorf("memory: encode embedding: %w", err)
	}
	_, err = w.db.Exec(
		`INSERT INTO memories (id, group_id, mem_type, content, metadata, embedding, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, group, string(cell.Type), cell.Content, cell.Metadata, string(embJSON), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("memory: insert: %w", err)
	}
	return id, nil
}

func (w *Writer) nearestInGroup(group string, vec []float32) (Row, float64, bool, error) {
	rows, err := w.db.Query(
		`SELECT id, group_id, mem_type, content, metadata, embedding, created_at, updated_at
		 FROM memories WHERE group_id = ? AND mem_type != ?`,
		group, string(TypeEventLog),
	)
	if err != nil {
		return Row{}, 0, false, fmt.Errorf("memory: query candidates: %w", err)
	}
	defer rows.Close()

	var best Row
	bestDist := 2.0
	found := false
	for rows.Next() {
		var r Row
		var memType, embJSON string
		if err := rows.Scan(&r.ID, &r.GroupID, &memType, &r.Content, &r.Metadata, &embJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return Row{}, 0, false, fmt.Errorf("memory: scan candidate: %w", err)
		}
		r.Type = MemType(memType)
		var cand []float32
		if err := json.Unmarshal([]byte(embJSON), &cand); err != nil {
			continue
		}
		d := cosineDistance(vec, cand)
		if d < bestDist {
			bestDist, best, found = d, r, true
		}
	}
	return best, bestDist, found, rows.Err()
}

func (w *Writer) touchUpdatedAt(id string) error {
	_, err := w.db.Exec(`UPDATE memories SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("memory: touch updated_at: %w", err)
	}
	return nil
}

func (w *Writer) logDedup(kept Row, candidate MemCell, group string, dist float64, reasoning string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := w.db.Exec(
		`INSERT INTO dedup_logs (id, kept_memory_id, new_memory_content, new_memory_type, new_memory_metadata,
			kept_memory_content, vector_distance, llm_reasoning, group_id, created_at, rolled_back)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		id, kept.ID, candidate.Content, string(candidate.Type), candidate.Metadata,
		kept.Content, dist, reasoning, group, now,
	)
	if err != nil {
		return "", fmt.Errorf("memory: log dedup: %w", err)
	}
	return id, nil
}

// UndoDedup reverses a suppression: the originally-suppressed content is
// re-inserted and the log row is marked rolled back. Already-rolled-back
// rows are a no-op, signaled by a nil *model.DedupLog and nil error.
func (w *Writer) UndoDedup(logID string) (*model.DedupLog, error) {
	row := w.db.QueryRow(
		`SELECT id, kept_memory_id, new_memory_content, new_memory_type, new_memory_metadata,
			kept_memory_content, vector_distance, llm_reasoning, group_id, created_at, rolled_back
		 FROM dedup_logs WHERE id = ?`, logID)

	var log model.DedupLog
	var rolledBack int
	if err := row.Scan(&log.ID, &log.KeptMemoryID, &log.NewMemoryContent, &log.NewMemoryType,
		&log.NewMemoryMetadata, &log.KeptMemoryContent, &log.VectorDistance, &log.LLMReasoning,
		&log.GroupID, &log.CreatedAt, &rolledBack); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("memory: load dedup log: %w", err)
	}
	if rolledBack == 1 {
		return nil, nil
	}

	vec, err := w.embedder.Embed(context.Background(), log.NewMemoryContent)
	if err != nil {
		return nil, fmt.Errorf("memory: embed for undo: %w", err)
	}
	if _, err := w.insert(MemCell{Content: log.NewMemoryContent, Type: MemType(log.NewMemoryType), Metadata: log.NewMemoryMetadata}, log.GroupID, vec); err != nil {
		return nil, err
	}
	if _, err := w.db.Exec(`UPDATE dedup_logs SET rolled_back = 1 WHERE id = ?`, logID); err != nil {
		return nil, fmt.Errorf("memory: mark rolled back: %w", err)
	}
	log.RolledBack = true
	return &log, nil
}

// DeleteMemoriesByID deletes the memories with the given row ids, returning
// the number removed. Used by checkpoint rollback to undo exactly the
// memories a discarded turn created, without touching sibling memories in
// the same group id. Same failure contract as DeleteMemoriesByGroupID.
func (w *Writer) DeleteMemoriesByID(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := "DELETE FROM memories WHERE id IN (" + strings.Join(placeholders, ",") + ")"
	res, err := w.db.Exec(query, args...)
	if err != nil {
		slog.Warn("memory: delete by id failed", "count", len(ids), "error", err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// DeleteMemoriesByGroupID deletes all memories with the given group id,
// returning the number removed. A query failure is logged and swallowed,
// returning 0 with no deletes performed.
func (w *Writer) DeleteMemoriesByGroupID(groupID string) int {
	res, err := w.db.Exec(`DELETE FROM memories WHERE group_id = ?`, groupID)
	if err != nil {
		slog.Warn("memory: delete by group id failed", "groupId", groupID, "error", err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// DeleteMemoriesByGroupPrefix deletes all memories whose group id starts
// with prefix. Same failure contract as DeleteMemoriesByGroupID.
func (w *Writer) DeleteMemoriesByGroupPrefix(prefix string) int {
	res, err := w.db.Exec(`DELETE FROM memories WHERE group_id LIKE ? ESCAPE '\'`, escapeLikePrefix(prefix)+"%")
	if err != nil {
		slog.Warn("memory: delete by group prefix failed", "prefix", prefix, "error", err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

func escapeLikePrefix(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
