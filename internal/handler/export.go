package handler

import (
	"bytes"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iaeduca/provagen/internal/i18n"
	"github.com/iaeduca/provagen/internal/refdoc"
	"github.com/iaeduca/provagen/internal/render"
)

// maxReferenceSize caps uploaded reference documents at 16 MiB.
const maxReferenceSize = 16 << 20

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exam, ok := h.store.GetExam(id)
	if !ok {
		respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.exam_not_found"))
		return
	}

	doc := render.Build(exam)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, doc.Plain())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exam, ok := h.store.GetExam(id)
	if !ok {
		respondError(w, http.StatusNotFound, i18n.T(r.Context(), "error.exam_not_found"))
		return
	}

	op := "export:" + id
	if !h.begin(op) {
		respondError(w, http.StatusConflict, i18n.T(r.Context(), "error.operation_in_flight"))
		return
	}
	defer h.end(op)

	var buf bytes.Buffer
	if err := render.WritePDF(render.Build(exam), &buf); err != nil {
		slog.Error("pdf export failed", "exam_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, i18n.T(r.Context(), "error.export_failed"))
		return
	}

	filename := render.SanitizeFilename(exam.Title) + ".pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(buf.Bytes())
}

type referenceResponse struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
	Text     string `json:"text,omitempty"`
}

// handleReference accepts a reference exam upload. Only PDF files pass: the
// extension and the file magic must both agree.
func (h *Handler) handleReference(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxReferenceSize); err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": err.Error()}))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, i18n.Td(r.Context(), "error.invalid_request", map[string]any{"Detail": err.Error()}))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReferenceSize))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" || !refdoc.IsPDF(data) {
		respondError(w, http.StatusUnsupportedMediaType, i18n.T(r.Context(), "error.upload_not_pdf"))
		return
	}

	resp := referenceResponse{
		Filename: header.Filename,
		Data:     base64.StdEncoding.EncodeToString(data),
	}
	if refdoc.Available() {
		text, err := refdoc.ExtractText(data)
		if err != nil {
			slog.Warn("reference text extraction failed", "filename", header.Filename, "error", err)
		} else {
			resp.Text = text
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
