package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/openkanban/kanbd/internal/adapter/otel"
	"github.com/openkanban/kanbd/internal/adapter/ws"
	"github.com/openkanban/kanbd/internal/domain"
	"github.com/openkanban/kanbd/internal/domain/stage"
	"github.com/openkanban/kanbd/internal/domain/task"
	"github.com/openkanban/kanbd/internal/port/broadcast"
	"github.com/openkanban/kanbd/internal/port/cache"
	"github.com/openkanban/kanbd/internal/port/database"
	"github.com/openkanban/kanbd/internal/port/messagequeue"
)

const boardCacheKey = "board:tasks"

// TaskService is the mutation engine for task records. All writes funnel
// through a bounded compare-and-write retry loop, which makes concurrent
// updates of the same task linearizable: a write only commits against the
// exact version it read, so no committed update is ever overwritten without
// incorporating its effects.
type TaskService struct {
	store    database.Store
	queue    messagequeue.Queue
	hub      broadcast.Broadcaster
	cache    cache.Cache
	metrics  *otel.Metrics
	attempts int
	jitter   time.Duration
	boardTTL time.Duration
}

// TaskServiceOptions configures a TaskService.
type TaskServiceOptions struct {
	Queue       messagequeue.Queue
	Broadcaster broadcast.Broadcaster
	Cache       cache.Cache
	Metrics     *otel.Metrics
	MaxAttempts int
	RetryJitter time.Duration
	BoardTTL    time.Duration
}

// NewTaskService creates a new TaskService. Queue, Broadcaster, Cache, and
// Metrics are optional; absent collaborators are skipped.
func NewTaskService(store database.Store, opts TaskServiceOptions) *TaskService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 5
	}
	if opts.BoardTTL <= 0 {
		opts.BoardTTL = 5 * time.Second
	}
	return &TaskService{
		store:    store,
		queue:    opts.Queue,
		hub:      opts.Broadcaster,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		attempts: opts.MaxAttempts,
		jitter:   opts.RetryJitter,
		boardTTL: opts.BoardTTL,
	}
}

// Get returns a task by ID.
func (s *TaskService) Get(ctx context.Context, id string) (*task.Task, error) {
	return s.store.GetTask(ctx, id)
}

// History returns the append-only status history of a task.
func (s *TaskService) History(ctx context.Context, id string) ([]task.HistoryEntry, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.History, nil
}

// List returns all tasks for board rendering, served from the read-model
// cache when fresh.
func (s *TaskService) List(ctx context.Context) ([]task.Task, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, boardCacheKey); err == nil && ok {
			var tasks []task.Task
			if err := json.Unmarshal(data, &tasks); err == nil {
				return tasks, nil
			}
		}
	}

	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(tasks); err == nil {
			_ = s.cache.Set(ctx, boardCacheKey, data, s.boardTTL)
		}
	}
	return tasks, nil
}

// Create validates the payload, resolves the initial status (explicit, or
// inferred from the target stage's name), and inserts the record with a
// single-entry history. There is no prior state, so no CAS loop is needed.
func (s *TaskService) Create(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	if err := task.ValidateCreateRequest(&req); err != nil {
		return nil, err
	}

	st, err := s.store.GetStage(ctx, req.StageID)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = task.InferStatus(st.Name)
	}

	now := time.Now().UTC()
	t := &task.Task{
		Title:        req.Title,
		Description:  req.Description,
		StageID:      req.StageID,
		Status:       status,
		Priority:     req.Priority,
		Effort:       req.Effort,
		DueDate:      req.DueDate,
		Tags:         append([]string(nil), req.Tags...),
		ParentTaskID: req.ParentTaskID,
		Recurrence:   req.Recurrence,
		History:      []task.HistoryEntry{{Status: status, Timestamp: now}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.InsertTask(ctx, t); err != nil {
		return nil, err
	}

	s.committed(ctx, messagequeue.SubjectTaskCreated, ws.EventTaskCreated, t)
	return t, nil
}

// Update applies a partial update to a task under the compare-and-write
// protocol. Each attempt re-reads the current record and the target stage and
// re-runs the projector against them, so concurrent status transitions compose
// instead of clobbering each other. A version conflict triggers a retry with a
// small randomized delay; after all attempts it surfaces as
// domain.ErrRetriesExhausted, which callers should treat as retryable.
func (s *TaskService) Update(ctx context.Context, id string, upd task.UpdateRequest) (*task.Task, error) {
	if err := task.ValidateUpdateRequest(upd); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current, err := s.store.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}

		target, err := s.resolveStage(ctx, current, upd)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		proj := task.ProjectUpdate(current, upd, target, now)

		candidate := current.Clone()
		task.MergeUpdate(candidate, upd)
		candidate.Status = proj.Status
		candidate.History = append(candidate.History, proj.Entries...)
		candidate.UpdatedAt = now
		candidate.Version = current.Version + 1

		err = s.store.CompareAndWriteTask(ctx, current.Version, candidate)
		if err == nil {
			if s.metrics != nil {
				s.metrics.MutationsCommitted.Add(ctx, 1)
				s.metrics.UpdateAttempts.Record(ctx, int64(attempt))
			}
			event := messagequeue.SubjectTaskUpdated
			wsEvent := ws.EventTaskUpdated
			if upd.Archived != nil && *upd.Archived {
				event = messagequeue.SubjectTaskArchived
				wsEvent = ws.EventTaskArchived
			}
			s.committed(ctx, event, wsEvent, candidate)
			return candidate, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}

		// Another writer committed since our read; recompute against fresh state.
		if s.metrics != nil {
			s.metrics.CASConflicts.Add(ctx, 1)
		}
		if s.jitter > 0 {
			time.Sleep(time.Duration(rand.Int64N(int64(s.jitter))))
		}
	}

	if s.metrics != nil {
		s.metrics.RetriesExhausted.Add(ctx, 1)
	}
	return nil, fmt.Errorf("update task %s after %d attempts: %w", id, s.attempts, domain.ErrRetriesExhausted)
}

// Archive soft-deletes a task. The archive itself is logged as a history entry
// even when the status is unchanged.
func (s *TaskService) Archive(ctx context.Context, id string) (*task.Task, error) {
	archived := true
	return s.Update(ctx, id, task.UpdateRequest{Archived: &archived})
}

// Unarchive restores an archived task to the board.
func (s *TaskService) Unarchive(ctx context.Context, id string) (*task.Task, error) {
	archived := false
	return s.Update(ctx, id, task.UpdateRequest{Archived: &archived})
}

// Delete hard-deletes a task, forfeiting its history.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.invalidateBoard(ctx)
	s.publish(ctx, messagequeue.SubjectTaskDeleted, ws.TaskDeletedEvent{TaskID: id})
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventTaskDeleted, ws.TaskDeletedEvent{TaskID: id})
	}
	return nil
}

// resolveStage fetches the stage the projector needs, if any. Stage state is
// read fresh on every attempt; the inference contract depends on the stage's
// current name at decision time.
func (s *TaskService) resolveStage(ctx context.Context, current *task.Task, upd task.UpdateRequest) (*stage.Stage, error) {
	switch {
	case upd.Status == nil && upd.StageID != nil && *upd.StageID != current.StageID:
		return s.store.GetStage(ctx, *upd.StageID)
	case upd.Status == nil && current.Status == "":
		stageID := current.StageID
		if upd.StageID != nil {
			stageID = *upd.StageID
		}
		return s.store.GetStage(ctx, stageID)
	default:
		return nil, nil
	}
}

// committed runs the post-commit side effects shared by create and update:
// board cache invalidation, queue publication, and the live-board broadcast.
// Publish failures are logged, never propagated; the mutation is durable.
func (s *TaskService) committed(ctx context.Context, subject, wsEvent string, t *task.Task) {
	s.invalidateBoard(ctx)
	s.publish(ctx, subject, t)
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, wsEvent, ws.TaskEvent{Task: t})
	}
}

func (s *TaskService) invalidateBoard(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, boardCacheKey)
	}
}

func (s *TaskService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal board event", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish board event", "subject", subject, "error", err)
	}
}
