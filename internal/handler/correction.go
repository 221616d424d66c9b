package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iaeduca/provagen/internal/i18n"
	"github.com/iaeduca/provagen/internal/model"
)

type correctRequest struct {
	Answers string `json:"answers"`
}

func (h *Handler) handleCorrect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exam, ok := h.store.GetExam(id)
	if !ok {
		respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.exam_not_found"))
		return
	}

	var req correctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": err.Error()}))
		return
	}
	if strings.TrimSpace(req.Answers) == "" {
		respondError(w, http.StatusBadRequest, i18n.T(r.Context(), "error.empty_answers"))
		return
	}

	op := "correct:" + id
	if !h.begin(op) {
		respondError(w, http.StatusConflict, i18n.T(r.Context(), "error.operation_in_flight"))
		return
	}
	defer h.end(op)

	result, err := h.ai.CorrectExam(r.Context(), exam, req.Answers)
	if err != nil {
		slog.Error("correction failed", "exam_id", id, "error", err)
		respondError(w, http.StatusBadGateway, i18n.T(r.Context(), "error.correct_failed"))
		return
	}

	h.mu.Lock()
	h.correction = result
	h.currentExamID = id
	h.view = model.ViewCorrect
	h.mu.Unlock()

	respondJSON(w, http.StatusOK, model.BuildCorrectionReport(exam, *result))
}

func (h *Handler) handleGetCorrection(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	result := h.correction
	examID := h.currentExamID
	h.mu.Unlock()

	if result == nil {
		respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.no_correction"))
		return
	}
	exam, ok := h.store.GetExam(examID)
	if !ok {
		respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.exam_not_found"))
		return
	}
	respondJSON(w, http.StatusOK, model.BuildCorrectionReport(exam, *result))
}

type commentPatch struct {
	Comment string `json:"comment"`
}

// handleUpdateComment edits one item of the detailed correction in place. The
// index is the question index the report shows, not the item's position in
// the provider's list; the two differ when the provider returns items out of
// order or omits some.
func (h *Handler) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": err.Error()}))
		return
	}

	var patch commentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": err.Error()}))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.correction == nil {
		respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.no_correction"))
		return
	}
	for i := range h.correction.DetailedCorrection {
		item := &h.correction.DetailedCorrection[i]
		if item.QuestionIndex == index {
			item.Comment = patch.Comment
			respondJSON(w, http.StatusOK, *item)
			return
		}
	}
	respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.question_not_found"))
}

func (h *Handler) handleDeleteCorrection(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.correction = nil
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
