package http

import (
	"net/http"

	"github.com/openkanban/kanbd/internal/domain/stage"
	"github.com/openkanban/kanbd/internal/service"
)

// StageHandler exposes board column management over HTTP.
type StageHandler struct {
	stages *service.StageService
}

// NewStageHandler creates a new StageHandler.
func NewStageHandler(stages *service.StageService) *StageHandler {
	return &StageHandler{stages: stages}
}

func (h *StageHandler) listStages(w http.ResponseWriter, r *http.Request) {
	stages, err := h.stages.List(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

func (h *StageHandler) getStage(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	st, err := h.stages.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "stage not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *StageHandler) createStage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[stage.CreateRequest](w, r)
	if !ok {
		return
	}
	st, err := h.stages.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "stage not found")
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *StageHandler) updateStage(w http.ResponseWriter, r *http.Request) {
	st, ok := readJSON[stage.Stage](w, r)
	if !ok {
		return
	}
	st.ID = urlParam(r, "id")
	if err := h.stages.Update(r.Context(), &st); err != nil {
		writeDomainError(w, err, "stage not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *StageHandler) deleteStage(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := h.stages.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "stage not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
