// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/openkanban/kanbd/internal/domain/stage"
	"github.com/openkanban/kanbd/internal/domain/task"
)

// Store is the port interface for database operations.
//
// CompareAndWriteTask is the only task mutation primitive: there is no blind
// overwrite, which is what prevents lost updates under concurrent writers.
type Store interface {
	// Tasks
	ListTasks(ctx context.Context) ([]task.Task, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
	// InsertTask stores a new task, assigning its ID and initializing version to 1.
	InsertTask(ctx context.Context, t *task.Task) error
	// CompareAndWriteTask writes t only if the stored version still equals
	// expectedVersion (t carries expectedVersion+1). It returns
	// domain.ErrConflict when another writer committed first and
	// domain.ErrNotFound when the record no longer exists.
	CompareAndWriteTask(ctx context.Context, expectedVersion int, t *task.Task) error
	DeleteTask(ctx context.Context, id string) error

	// Stages
	ListStages(ctx context.Context) ([]stage.Stage, error)
	GetStage(ctx context.Context, id string) (*stage.Stage, error)
	CreateStage(ctx context.Context, req stage.CreateRequest) (*stage.Stage, error)
	UpdateStage(ctx context.Context, s *stage.Stage) error
	DeleteStage(ctx context.Context, id string) error
}
