package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openkanban/kanbd/internal/domain"
	"github.com/openkanban/kanbd/internal/domain/task"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const taskColumns = `id, title, description, stage_id, status, priority, effort, due_date,
	 tags, parent_task_id, recurrence, archived, history, version, created_at, updated_at`

// --- Tasks ---

func (s *Store) ListTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) InsertTask(ctx context.Context, t *task.Task) error {
	historyJSON, err := json.Marshal(t.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, stage_id, status, priority, effort, due_date,
		                    tags, parent_task_id, recurrence, archived, history, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, version`,
		t.Title, t.Description, t.StageID, string(t.Status), string(t.Priority),
		nullIfZero(t.Effort), t.DueDate, t.Tags, nullIfEmpty(t.ParentTaskID),
		string(t.Recurrence), t.Archived, historyJSON, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID, &t.Version)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// CompareAndWriteTask commits t as one conditional UPDATE on (id, version).
// The version check at the storage layer is what makes concurrent
// read-modify-write cycles safe: a stale writer affects zero rows.
func (s *Store) CompareAndWriteTask(ctx context.Context, expectedVersion int, t *task.Task) error {
	historyJSON, err := json.Marshal(t.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET title = $2, description = $3, stage_id = $4, status = $5, priority = $6,
		                  effort = $7, due_date = $8, tags = $9, parent_task_id = $10, recurrence = $11,
		                  archived = $12, history = $13, version = $14, updated_at = $15
		 WHERE id = $1 AND version = $16`,
		t.ID, t.Title, t.Description, t.StageID, string(t.Status), string(t.Priority),
		nullIfZero(t.Effort), t.DueDate, t.Tags, nullIfEmpty(t.ParentTaskID),
		string(t.Recurrence), t.Archived, historyJSON, t.Version, t.UpdatedAt, expectedVersion)
	if err != nil {
		return fmt.Errorf("compare-and-write task %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		// Zero rows means either a version race or a deleted record.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
			return fmt.Errorf("compare-and-write task %s: %w", t.ID, err)
		}
		if !exists {
			return fmt.Errorf("compare-and-write task %s: %w", t.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("compare-and-write task %s: %w", t.ID, domain.ErrConflict)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete task %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// --- Scanners ---

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (task.Task, error) {
	var t task.Task
	var effort *int
	var parentID *string
	var historyJSON []byte
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.StageID, &t.Status, &t.Priority,
		&effort, &t.DueDate, &t.Tags, &parentID, &t.Recurrence, &t.Archived,
		&historyJSON, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if effort != nil {
		t.Effort = *effort
	}
	if parentID != nil {
		t.ParentTaskID = *parentID
	}
	if historyJSON != nil {
		if err := json.Unmarshal(historyJSON, &t.History); err != nil {
			return t, fmt.Errorf("unmarshal history: %w", err)
		}
	}
	return t, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullIfZero(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
