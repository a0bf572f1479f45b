package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/openkanban/kanbd/internal/domain/task"
)

// Event type constants for WebSocket messages.
const (
	EventTaskCreated  = "task.created"
	EventTaskUpdated  = "task.updated"
	EventTaskArchived = "task.archived"
	EventTaskDeleted  = "task.deleted"
	EventStageChanged = "stage.changed"
)

// TaskEvent is broadcast when a task record is created, updated, or archived.
// It carries the full committed record so clients can re-render the card
// without a round trip.
type TaskEvent struct {
	Task *task.Task `json:"task"`
}

// TaskDeletedEvent is broadcast when a task is hard-deleted.
type TaskDeletedEvent struct {
	TaskID string `json:"task_id"`
}

// StageChangedEvent is broadcast when a stage is created, renamed, reordered,
// or deleted. Clients refetch the stage list.
type StageChangedEvent struct {
	StageID string `json:"stage_id"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
