package http

import (
	"net/http"

	"github.com/openkanban/kanbd/internal/domain/task"
	"github.com/openkanban/kanbd/internal/service"
)

// TaskHandler exposes the task mutation engine over HTTP.
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) getTask(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	t, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) createTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[task.CreateRequest](w, r)
	if !ok {
		return
	}
	t, err := h.tasks.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "stage not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) updateTask(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	upd, ok := readJSON[task.UpdateRequest](w, r)
	if !ok {
		return
	}
	t, err := h.tasks.Update(r.Context(), id, upd)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) archiveTask(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	t, err := h.tasks.Archive(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) unarchiveTask(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	t, err := h.tasks.Unarchive(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) taskHistory(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	history, err := h.tasks.History(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *TaskHandler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := h.tasks.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
