package task

import (
	"strings"
	"time"

	"github.com/openkanban/kanbd/internal/domain/stage"
)

// Projection is the outcome of projecting a partial update onto a task:
// the canonical status after the update and the history entries to append.
type Projection struct {
	Status  Status
	Entries []HistoryEntry
}

// InferStatus derives a status from a stage name by case-insensitive substring
// matching. Abandon keywords are checked before done keywords because
// "abandoned" itself contains "done".
func InferStatus(stageName string) Status {
	name := strings.ToLower(stageName)
	switch {
	case containsAny(name, "progress", "doing", "active"):
		return StatusInProgress
	case containsAny(name, "abandon", "cancel"):
		return StatusAbandoned
	case containsAny(name, "done", "complete", "finished"):
		return StatusDone
	default:
		return StatusBacklog
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ProjectUpdate decides, given the current record and a requested update, the
// new canonical status and the history entries the commit must append.
//
// target is the stage referenced by upd.StageID (nil when the update does not
// move the task); when the current record has no status, it is also used for
// one-time backward-compatible inference. The function performs no I/O and is
// deterministic in its inputs, so the mutation engine can re-run it cheaply
// against a freshly read record on every compare-and-write attempt.
func ProjectUpdate(current *Task, upd UpdateRequest, target *stage.Stage, now time.Time) Projection {
	p := Projection{Status: current.Status}

	switch {
	case upd.Status != nil:
		if *upd.Status != current.Status {
			p.Status = *upd.Status
			p.Entries = append(p.Entries, HistoryEntry{Status: p.Status, Timestamp: now})
		}
	case upd.StageID != nil && *upd.StageID != current.StageID && target != nil:
		if inferred := InferStatus(target.Name); inferred != current.Status {
			p.Status = inferred
			p.Entries = append(p.Entries, HistoryEntry{Status: p.Status, Timestamp: now})
		}
	case current.Status == "" && target != nil:
		// Records imported without a status get one inferred once.
		p.Status = InferStatus(target.Name)
	}

	// Archiving is always logged, even when the status did not change.
	if upd.Archived != nil && *upd.Archived {
		p.Entries = append(p.Entries, HistoryEntry{Status: p.Status, Timestamp: now, Note: NoteArchived})
	}

	return p
}

// NoteArchived is the note attached to the history entry an archive appends.
const NoteArchived = "Archived"

// MergeUpdate applies the non-nil fields of upd onto t. The id, creation time,
// history, status, and version fields are controlled by the mutation engine
// and are never touched here.
func MergeUpdate(t *Task, upd UpdateRequest) {
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.StageID != nil {
		t.StageID = *upd.StageID
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.Effort != nil {
		t.Effort = *upd.Effort
	}
	if upd.DueDate != nil {
		d := *upd.DueDate
		t.DueDate = &d
	}
	if upd.Tags != nil {
		t.Tags = append([]string(nil), (*upd.Tags)...)
	}
	if upd.ParentTaskID != nil {
		t.ParentTaskID = *upd.ParentTaskID
	}
	if upd.Recurrence != nil {
		t.Recurrence = *upd.Recurrence
	}
	if upd.Archived != nil {
		t.Archived = *upd.Archived
	}
}
