// Package memory implements the database store port in process memory.
// It backs unit tests and the concurrency property tests: compare-and-write is
// an atomic check-and-set under one mutex, with deep copies at the boundary so
// callers can never alias stored state.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openkanban/kanbd/internal/domain"
	"github.com/openkanban/kanbd/internal/domain/stage"
	"github.com/openkanban/kanbd/internal/domain/task"
)

// Store implements database.Store in memory.
type Store struct {
	mu     sync.Mutex
	tasks  map[string]*task.Task
	stages map[string]*stage.Stage
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		tasks:  make(map[string]*task.Task),
		stages: make(map[string]*stage.Stage),
	}
}

// --- Tasks ---

func (s *Store) ListTasks(_ context.Context) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, *t.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

func (s *Store) GetTask(_ context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
	}
	return t.Clone(), nil
}

func (s *Store) InsertTask(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.NewString()
	t.Version = 1
	s.tasks[t.ID] = t.Clone()
	return nil
}

func (s *Store) CompareAndWriteTask(_ context.Context, expectedVersion int, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[t.ID]
	if !ok {
		return fmt.Errorf("compare-and-write task %s: %w", t.ID, domain.ErrNotFound)
	}
	if cur.Version != expectedVersion {
		return fmt.Errorf("compare-and-write task %s: %w", t.ID, domain.ErrConflict)
	}
	s.tasks[t.ID] = t.Clone()
	return nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("delete task %s: %w", id, domain.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

// --- Stages ---

func (s *Store) ListStages(_ context.Context) ([]stage.Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stages := make([]stage.Stage, 0, len(s.stages))
	for _, st := range s.stages {
		stages = append(stages, *st)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].Order < stages[j].Order })
	return stages, nil
}

func (s *Store) GetStage(_ context.Context, id string) (*stage.Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stages[id]
	if !ok {
		return nil, fmt.Errorf("get stage %s: %w", id, domain.ErrNotFound)
	}
	cp := *st
	return &cp, nil
}

func (s *Store) CreateStage(_ context.Context, req stage.CreateRequest) (*stage.Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	st := &stage.Stage{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Order:     req.Order,
		Color:     req.Color,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.stages[st.ID] = st
	cp := *st
	return &cp, nil
}

func (s *Store) UpdateStage(_ context.Context, st *stage.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.stages[st.ID]
	if !ok {
		return fmt.Errorf("update stage %s: %w", st.ID, domain.ErrNotFound)
	}
	if cur.Version != st.Version {
		return fmt.Errorf("update stage %s: %w", st.ID, domain.ErrConflict)
	}
	cp := *st
	cp.Version++
	cp.UpdatedAt = time.Now().UTC()
	s.stages[st.ID] = &cp
	st.Version++
	return nil
}

func (s *Store) DeleteStage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stages[id]; !ok {
		return fmt.Errorf("delete stage %s: %w", id, domain.ErrNotFound)
	}
	delete(s.stages, id)
	return nil
}
