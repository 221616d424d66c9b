package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/iaeduca/provagen/internal/i18n"
	"github.com/iaeduca/provagen/internal/model"
)

const displayDateFormat = "02/01/2006"

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Exams())
}

type generateRequest struct {
	Subject       string           `json:"subject" validate:"required"`
	Topic         string           `json:"topic" validate:"required"`
	Grade         string           `json:"grade" validate:"required"`
	Count         int              `json:"count" validate:"required,gte=1,lte=50"`
	Difficulty    model.Difficulty `json:"difficulty" validate:"required,oneof=easy medium hard"`
	ReferenceText string           `json:"referenceText"`
	PDFData       string           `json:"pdfData"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": err.Error()}))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": validationDetail(err)}))
		return
	}

	if !h.begin("generate") {
		respondError(w, http.StatusConflict, i18n.T(r.Context(), "error.operation_in_flight"))
		return
	}
	defer h.end("generate")

	exam, err := h.ai.GenerateExam(r.Context(), model.GenerateParams{
		Subject:       req.Subject,
		Topic:         req.Topic,
		Grade:         req.Grade,
		Count:         req.Count,
		Difficulty:    req.Difficulty,
		ReferenceText: req.ReferenceText,
		PDFData:       req.PDFData,
	})
	if err != nil {
		slog.Error("exam generation failed", "subject", req.Subject, "error", err)
		respondError(w, http.StatusBadGateway, i18n.T(r.Context(), "error.generate_failed"))
		return
	}

	h.augmentExam(r.Context(), exam)
	if err := h.store.AddExam(*exam); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.mu.Lock()
	h.currentExamID = exam.ID
	h.view = model.ViewEdit
	h.mu.Unlock()

	respondJSON(w, http.StatusCreated, exam)
}

// augmentExam fills what the provider does not know: identifier, display
// date, teacher identity from settings, and the default instruction block.
func (h *Handler) augmentExam(ctx context.Context, exam *model.Exam) {
	settings := h.store.Settings()

	exam.ID = uuid.NewString()
	exam.Date = time.Now().Format(displayDateFormat)
	exam.TeacherName = settings.TeacherName
	if exam.TeacherName == "" {
		exam.TeacherName = i18n.T(ctx, "default.teacher_name")
	}
	exam.SchoolName = settings.SchoolName
	if exam.SchoolName == "" {
		exam.SchoolName = i18n.T(ctx, "default.school_name")
	}
	if exam.Instructions == "" {
		exam.Instructions = settings.DefaultInstructions
	}
	if exam.Instructions == "" {
		exam.Instructions = model.DefaultSettings().DefaultInstructions
	}
}

// examPatch carries a partial exam update. Nil fields are left unchanged.
type examPatch struct {
	Title        *string           `json:"title"`
	Subject      *string           `json:"subject"`
	Grade        *string           `json:"grade"`
	Date         *string           `json:"date"`
	SchoolName   *string           `json:"schoolName"`
	TeacherName  *string           `json:"teacherName"`
	Instructions *string           `json:"instructions"`
	Questions    *[]model.Question `json:"questions"`
}

func (h *Handler) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exam, ok := h.store.GetExam(id)
	if !ok {
		respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.exam_not_found"))
		return
	}

	var patch examPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": err.Error()}))
		return
	}

	if patch.Title != nil {
		exam.Title = *patch.Title
	}
	if patch.Subject != nil {
		exam.Subject = *patch.Subject
	}
	if patch.Grade != nil {
		exam.Grade = *patch.Grade
	}
	if patch.Date != nil {
		exam.Date = *patch.Date
	}
	if patch.SchoolName != nil {
		exam.SchoolName = *patch.SchoolName
	}
	if patch.TeacherName != nil {
		exam.TeacherName = *patch.TeacherName
	}
	if patch.Instructions != nil {
		exam.Instructions = *patch.Instructions
	}
	if patch.Questions != nil {
		exam.Questions = *patch.Questions
	}

	if err := exam.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": err.Error()}))
		return
	}
	if err := h.store.UpdateExam(exam); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		respondError(w, http.StatusConflict, i18n.T(r.Context(), "error.confirm_required"))
		return
	}

	id := chi.URLParam(r, "id")
	deleted, err := h.store.DeleteExam(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.exam_not_found"))
		return
	}

	h.mu.Lock()
	if h.currentExamID == id {
		h.currentExamID = ""
		h.correction = nil
	}
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

type addQuestionRequest struct {
	Question      string `json:"question" validate:"required"`
	CorrectAnswer string `json:"correctAnswer" validate:"required"`
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exam, ok := h.store.GetExam(id)
	if !ok {
		respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.exam_not_found"))
		return
	}

	var req addQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": err.Error()}))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": validationDetail(err)}))
		return
	}

	question := model.Question{
		ID:            uuid.NewString(),
		Type:          model.TypeOpen,
		Question:      req.Question,
		CorrectAnswer: req.CorrectAnswer,
		Weight:        1.0,
	}
	exam.Questions = append(exam.Questions, question)

	if err := h.store.UpdateExam(exam); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, question)
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		respondError(w, http.StatusConflict, i18n.T(r.Context(), "error.confirm_required"))
		return
	}

	id := chi.URLParam(r, "id")
	exam, ok := h.store.GetExam(id)
	if !ok {
		respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.exam_not_found"))
		return
	}

	qid := chi.URLParam(r, "qid")
	found := false
	questions := make([]model.Question, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		if q.ID == qid {
			found = true
			continue
		}
		questions = append(questions, q)
	}
	if !found {
		respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.question_not_found"))
		return
	}

	exam.Questions = questions
	if err := h.store.UpdateExam(exam); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
