package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/openkanban/kanbd/internal/adapter/ws"
	"github.com/openkanban/kanbd/internal/domain/stage"
	"github.com/openkanban/kanbd/internal/port/broadcast"
	"github.com/openkanban/kanbd/internal/port/database"
	"github.com/openkanban/kanbd/internal/port/messagequeue"
)

// StageService handles board column lifecycle. Stage writes use the same
// version-checked update the store provides, but stages see far less
// contention than tasks and need no retry loop.
type StageService struct {
	store database.Store
	queue messagequeue.Queue
	hub   broadcast.Broadcaster
}

// NewStageService creates a new StageService. Queue and hub are optional.
func NewStageService(store database.Store, queue messagequeue.Queue, hub broadcast.Broadcaster) *StageService {
	return &StageService{store: store, queue: queue, hub: hub}
}

// List returns all stages in board order.
func (s *StageService) List(ctx context.Context) ([]stage.Stage, error) {
	return s.store.ListStages(ctx)
}

// Get returns a stage by ID.
func (s *StageService) Get(ctx context.Context, id string) (*stage.Stage, error) {
	return s.store.GetStage(ctx, id)
}

// Create adds a new stage to the board.
func (s *StageService) Create(ctx context.Context, req stage.CreateRequest) (*stage.Stage, error) {
	if err := stage.ValidateCreateRequest(&req); err != nil {
		return nil, err
	}
	st, err := s.store.CreateStage(ctx, req)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, st.ID)
	return st, nil
}

// Update renames, reorders, or recolors a stage. The caller supplies the
// version it read; a concurrent edit surfaces as domain.ErrConflict.
func (s *StageService) Update(ctx context.Context, st *stage.Stage) error {
	if err := s.store.UpdateStage(ctx, st); err != nil {
		return err
	}
	s.changed(ctx, st.ID)
	return nil
}

// Delete removes a stage. Tasks still referencing it keep their stage id;
// the store's foreign key rejects the delete while tasks remain.
func (s *StageService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteStage(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, id)
	return nil
}

func (s *StageService) changed(ctx context.Context, id string) {
	event := ws.StageChangedEvent{StageID: id}
	if s.queue != nil {
		data, err := json.Marshal(event)
		if err == nil {
			if err := s.queue.Publish(ctx, messagequeue.SubjectStageChanged, data); err != nil {
				slog.Error("publish stage event", "stage_id", id, "error", err)
			}
		}
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventStageChanged, event)
	}
}
