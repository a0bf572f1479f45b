package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/openkanban/kanbd/internal/domain"
	"github.com/openkanban/kanbd/internal/domain/task"
)

func TestCompareAndWriteRejectsStaleVersion(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	seed := &task.Task{Title: "seed", Status: task.StatusBacklog}
	if err := store.InsertTask(ctx, seed); err != nil {
		t.Fatalf("insert: %v", err)
	}

	fresh := seed.Clone()
	fresh.Title = "first writer"
	fresh.Version = 2
	if err := store.CompareAndWriteTask(ctx, 1, fresh); err != nil {
		t.Fatalf("fresh write: %v", err)
	}

	stale := seed.Clone()
	stale.Title = "second writer"
	stale.Version = 2
	err := store.CompareAndWriteTask(ctx, 1, stale)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, err := store.GetTask(ctx, seed.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "first writer" || got.Version != 2 {
		t.Fatalf("stale write leaked through: %+v", got)
	}
}

func TestCompareAndWriteMissingTask(t *testing.T) {
	store := NewStore()

	ghost := &task.Task{ID: "nope", Version: 2}
	err := store.CompareAndWriteTask(context.Background(), 1, ghost)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreCopiesAtBoundary(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	seed := &task.Task{Title: "shared?", Tags: []string{"a"}}
	if err := store.InsertTask(ctx, seed); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetTask(ctx, seed.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Tags[0] = "mutated"

	again, err := store.GetTask(ctx, seed.ID)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.Tags[0] != "a" {
		t.Fatal("store state aliased by a returned task")
	}
}
