// Package task defines the Task domain entity and its mutation requests.
package task

import (
	"fmt"
	"time"

	"github.com/openkanban/kanbd/internal/domain"
)

// Status represents the canonical state of a task on the board.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusAbandoned  Status = "abandoned"
)

// Priority ranks a task for board sorting.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Recurrence describes how often an archived task respawns.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// HistoryEntry records one committed status transition. Entries are append-only:
// once written they are never removed or reordered.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Task represents a single board item. History grows monotonically; Version is
// the compare-and-write token and advances by exactly 1 per committed mutation.
type Task struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	StageID      string         `json:"stage_id"`
	Status       Status         `json:"status"`
	Priority     Priority       `json:"priority"`
	Effort       int            `json:"effort,omitempty"` // 1-5, 0 = unset
	DueDate      *time.Time     `json:"due_date,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	ParentTaskID string         `json:"parent_task_id,omitempty"`
	Recurrence   Recurrence     `json:"recurrence"`
	Archived     bool           `json:"archived"`
	History      []HistoryEntry `json:"history"`
	Version      int            `json:"version"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Clone returns a deep copy. The mutation engine builds its write candidate on
// a clone so a failed compare-and-write never leaves a half-mutated record.
func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	c.Tags = append([]string(nil), t.Tags...)
	c.History = append([]HistoryEntry(nil), t.History...)
	return &c
}

// CreateRequest holds the fields needed to create a new task.
// Status is optional; when absent it is inferred from the target stage's name.
type CreateRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	StageID      string     `json:"stage_id"`
	Status       Status     `json:"status,omitempty"`
	Priority     Priority   `json:"priority,omitempty"`
	Effort       int        `json:"effort,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	ParentTaskID string     `json:"parent_task_id,omitempty"`
	Recurrence   Recurrence `json:"recurrence,omitempty"`
}

// UpdateRequest is a partial update. Nil fields are left unchanged.
type UpdateRequest struct {
	Title        *string     `json:"title,omitempty"`
	Description  *string     `json:"description,omitempty"`
	StageID      *string     `json:"stage_id,omitempty"`
	Status       *Status     `json:"status,omitempty"`
	Priority     *Priority   `json:"priority,omitempty"`
	Effort       *int        `json:"effort,omitempty"` // 0 clears
	DueDate      *time.Time  `json:"due_date,omitempty"`
	Tags         *[]string   `json:"tags,omitempty"`
	ParentTaskID *string     `json:"parent_task_id,omitempty"` // empty clears
	Recurrence   *Recurrence `json:"recurrence,omitempty"`
	Archived     *bool       `json:"archived,omitempty"`
}

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusBacklog, StatusInProgress, StatusDone, StatusAbandoned:
		return true
	}
	return false
}

func validPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func validRecurrence(r Recurrence) bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

func validEffort(e int) bool {
	return e == 0 || (e >= 1 && e <= 5)
}

// ValidateCreateRequest checks a create payload and fills in defaults.
func ValidateCreateRequest(req *CreateRequest) error {
	if req.Title == "" {
		return fmt.Errorf("title is required: %w", domain.ErrValidation)
	}
	if len(req.Title) > 255 {
		return fmt.Errorf("title exceeds 255 characters: %w", domain.ErrValidation)
	}
	if req.StageID == "" {
		return fmt.Errorf("stage_id is required: %w", domain.ErrValidation)
	}
	if req.Status != "" && !ValidStatus(req.Status) {
		return fmt.Errorf("unknown status %q: %w", req.Status, domain.ErrValidation)
	}
	if req.Priority == "" {
		req.Priority = PriorityNormal
	} else if !validPriority(req.Priority) {
		return fmt.Errorf("unknown priority %q: %w", req.Priority, domain.ErrValidation)
	}
	if req.Recurrence == "" {
		req.Recurrence = RecurrenceNone
	} else if !validRecurrence(req.Recurrence) {
		return fmt.Errorf("unknown recurrence %q: %w", req.Recurrence, domain.ErrValidation)
	}
	if !validEffort(req.Effort) {
		return fmt.Errorf("effort must be between 1 and 5: %w", domain.ErrValidation)
	}
	return nil
}

// ValidateUpdateRequest checks a partial update before it reaches the store.
func ValidateUpdateRequest(upd UpdateRequest) error {
	if upd.Title != nil {
		if *upd.Title == "" {
			return fmt.Errorf("title cannot be empty: %w", domain.ErrValidation)
		}
		if len(*upd.Title) > 255 {
			return fmt.Errorf("title exceeds 255 characters: %w", domain.ErrValidation)
		}
	}
	if upd.StageID != nil && *upd.StageID == "" {
		return fmt.Errorf("stage_id cannot be empty: %w", domain.ErrValidation)
	}
	if upd.Status != nil && !ValidStatus(*upd.Status) {
		return fmt.Errorf("unknown status %q: %w", *upd.Status, domain.ErrValidation)
	}
	if upd.Priority != nil && !validPriority(*upd.Priority) {
		return fmt.Errorf("unknown priority %q: %w", *upd.Priority, domain.ErrValidation)
	}
	if upd.Recurrence != nil && !validRecurrence(*upd.Recurrence) {
		return fmt.Errorf("unknown recurrence %q: %w", *upd.Recurrence, domain.ErrValidation)
	}
	if upd.Effort != nil && !validEffort(*upd.Effort) {
		return fmt.Errorf("effort must be between 1 and 5: %w", domain.ErrValidation)
	}
	return nil
}
