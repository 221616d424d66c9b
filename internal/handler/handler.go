// Package handler is the HTTP surface of the application: a JSON API over the
// exam collection, the AI gateway, and the printable rendering. It also owns
// the view-controller state the frontend mirrors: the active screen, the
// current exam, and the transient correction.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/iaeduca/provagen/internal/i18n"
	"github.com/iaeduca/provagen/internal/model"
	"github.com/iaeduca/provagen/internal/store"
)

// Gateway is the slice of the AI client the handlers consume.
type Gateway interface {
	GenerateExam(ctx context.Context, params model.GenerateParams) (*model.Exam, error)
	CorrectExam(ctx context.Context, exam model.Exam, studentAnswers string) (*model.CorrectionResult, error)
}

// Handler holds shared dependencies and the controller state for HTTP
// handlers. The mutex guards view, currentExamID, correction, and inFlight;
// it is never held across a gateway call.
type Handler struct {
	store    *store.Store
	ai       Gateway
	validate *validator.Validate

	mu            sync.Mutex
	view          model.ViewState
	currentExamID string
	correction    *model.CorrectionResult
	inFlight      map[string]bool
}

// New creates a new Handler starting on the dashboard.
func New(s *store.Store, ai Gateway) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		store:    s,
		ai:       ai,
		validate: v,
		view:     model.ViewDashboard,
		inFlight: make(map[string]bool),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/state", h.handleState)
	r.Post("/view", h.handleSetView)

	r.Get("/exams", h.handleListExams)
	r.Post("/exams/generate", h.handleGenerate)
	r.Put("/exams/{id}", h.handleUpdateExam)
	r.Delete("/exams/{id}", h.handleDeleteExam)
	r.Post("/exams/{id}/questions", h.handleAddQuestion)
	r.Delete("/exams/{id}/questions/{qid}", h.handleDeleteQuestion)

	r.Post("/exams/{id}/correct", h.handleCorrect)
	r.Get("/correction", h.handleGetCorrection)
	r.Patch("/correction/comments/{index}", h.handleUpdateComment)
	r.Delete("/correction", h.handleDeleteCorrection)

	r.Get("/exams/{id}/document", h.handleDocument)
	r.Get("/exams/{id}/export", h.handleExport)

	r.Get("/settings", h.handleGetSettings)
	r.Put("/settings", h.handlePutSettings)

	r.Post("/reference", h.handleReference)
}

// begin marks an operation as in flight. It returns false when the same
// operation is already running.
func (h *Handler) begin(op string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inFlight[op] {
		return false
	}
	h.inFlight[op] = true
	return true
}

func (h *Handler) end(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inFlight, op)
}

type stateResponse struct {
	View          model.ViewState `json:"view"`
	CurrentExamID string          `json:"currentExamId"`
	InFlight      []string        `json:"inFlight"`
	SettingsSaved bool            `json:"settingsSaved"`
}

func (h *Handler) stateLocked() stateResponse {
	ops := make([]string, 0, len(h.inFlight))
	for op := range h.inFlight {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return stateResponse{
		View:          h.view,
		CurrentExamID: h.currentExamID,
		InFlight:      ops,
		SettingsSaved: h.store.SettingsSaved(),
	}
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	state := h.stateLocked()
	h.mu.Unlock()
	respondJSON(w, http.StatusOK, state)
}

type viewRequest struct {
	View model.ViewState `json:"view"`
}

func (h *Handler) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, i18n.T(r.Context(), "error.invalid_view"))
		return
	}
	if !model.ValidView(req.View) {
		respondError(w, http.StatusBadRequest, i18n.T(r.Context(), "error.invalid_view"))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch req.View {
	case model.ViewCorrect:
		exams := h.store.Exams()
		if len(exams) == 0 {
			respondError(w, http.StatusConflict, i18n.T(r.Context(), "error.no_exams"))
			return
		}
		if h.currentExamID == "" {
			h.currentExamID = exams[0].ID
		}
	case model.ViewEdit, model.ViewPrint:
		if h.currentExamID == "" {
			respondError(w, http.StatusConflict, i18n.T(r.Context(), "error.no_current_exam"))
			return
		}
	}

	// Leaving the correction screen discards the transient result.
	if h.view == model.ViewCorrect && req.View != model.ViewCorrect {
		h.correction = nil
	}
	h.view = req.View

	respondJSON(w, http.StatusOK, h.stateLocked())
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, settingsResponse{
		Settings: h.store.Settings(),
		Saved:    h.store.SettingsSaved(),
	})
}

type settingsResponse struct {
	Settings model.UserSettings `json:"settings"`
	Saved    bool               `json:"saved"`
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.UserSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": err.Error()}))
		return
	}
	if err := h.store.SaveSettings(settings); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, settingsResponse{Settings: settings, Saved: true})
}

// validationDetail flattens validator errors into one human-readable line.
func validationDetail(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fe.Field()+" ("+fe.Tag()+")")
	}
	return strings.Join(parts, ", ")
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
