package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaeduca/provagen/internal/model"
)

// newStubClient starts an OpenAI-compatible stub that answers every chat
// completion with the given content.
func newStubClient(t *testing.T, content string) *Client {
	t.Helper()
	return newStubClientFunc(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, content)
	})
}

func newStubClientFunc(t *testing.T, fn http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(fn)
	t.Cleanup(server.Close)
	return New(server.URL+"/v1", "test-key", "test-model", "")
}

func writeCompletion(w http.ResponseWriter, content string) {
	resp := map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func generationPayload(count int) string {
	questions := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		questions = append(questions, map[string]any{
			"id":            "",
			"type":          "open",
			"question":      "Explique o conceito.",
			"correctAnswer": "Uma explicação.",
			"weight":        1.0,
		})
	}
	payload := map[string]any{
		"title":        "Prova de Matemática",
		"subject":      "Matemática",
		"grade":        "8º ano",
		"instructions": "Leia com atenção.",
		"questions":    questions,
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func genParams(count int) model.GenerateParams {
	return model.GenerateParams{
		Subject:    "Matemática",
		Topic:      "Frações",
		Grade:      "8º ano",
		Count:      count,
		Difficulty: model.DifficultyMedium,
	}
}

func TestGenerateExam(t *testing.T) {
	payload := `{
		"title": "Prova de Matemática",
		"subject": "Matemática",
		"grade": "8º ano",
		"instructions": "Leia com atenção.",
		"questions": [
			{"id": "q1", "type": "multiple", "question": "2+2?", "options": ["3", "4", "5", "6"], "correctAnswer": "4", "weight": 1.0},
			{"id": "", "type": "open", "question": "Explique frações.", "correctAnswer": "Partes de um todo.", "weight": 0},
			{"id": "q1", "type": "open", "question": "Simplifique 4/8.", "correctAnswer": "1/2", "weight": 2.0}
		]
	}`
	client := newStubClient(t, payload)

	exam, err := client.GenerateExam(context.Background(), genParams(3))
	require.NoError(t, err)
	require.Len(t, exam.Questions, 3)

	// Identifier and date are the caller's job.
	assert.Empty(t, exam.ID)
	assert.Equal(t, "Prova de Matemática", exam.Title)

	// Missing or duplicated identifiers are replaced, keeping the set unique.
	seen := map[string]bool{}
	for _, q := range exam.Questions {
		assert.NotEmpty(t, q.ID)
		assert.False(t, seen[q.ID], "duplicate question id %q", q.ID)
		seen[q.ID] = true
	}
	assert.Equal(t, "q1", exam.Questions[0].ID)
	assert.NotEqual(t, "q1", exam.Questions[2].ID)

	// Non-positive weights fall back to 1.0.
	assert.Equal(t, 1.0, exam.Questions[1].Weight)
	assert.Equal(t, 2.0, exam.Questions[2].Weight)
}

func TestGenerateExamStripsMarkdownFence(t *testing.T) {
	client := newStubClient(t, "```json\n"+generationPayload(2)+"\n```")

	exam, err := client.GenerateExam(context.Background(), genParams(2))
	require.NoError(t, err)
	assert.Len(t, exam.Questions, 2)
}

func TestGenerateExamCountMismatch(t *testing.T) {
	client := newStubClient(t, generationPayload(3))

	_, err := client.GenerateExam(context.Background(), genParams(5))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuestionCount)
}

func TestGenerateExamBadPayload(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "sorry, I cannot help with that"},
		{"missing title", `{"subject": "M", "grade": "8º", "questions": [{"type": "open", "question": "Q?", "correctAnswer": "A", "weight": 1}]}`},
		{"no questions", `{"title": "T", "subject": "M", "grade": "8º", "questions": []}`},
		{"unknown type", `{"title": "T", "subject": "M", "grade": "8º", "questions": [{"type": "essay", "question": "Q?", "correctAnswer": "A", "weight": 1}]}`},
		{"multiple without options", `{"title": "T", "subject": "M", "grade": "8º", "questions": [{"type": "multiple", "question": "Q?", "correctAnswer": "A", "weight": 1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newStubClient(t, tt.content)
			_, err := client.GenerateExam(context.Background(), genParams(1))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadPayload)
		})
	}
}

func TestGenerateExamNoChoices(t *testing.T) {
	client := newStubClientFunc(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	})

	_, err := client.GenerateExam(context.Background(), genParams(1))
	assert.ErrorIs(t, err, ErrNoChoices)
}

func correctionExam() model.Exam {
	return model.Exam{
		ID:      "e1",
		Subject: "Matemática",
		Questions: []model.Question{
			{ID: "q1", Type: model.TypeMultiple, Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4", Weight: 1},
			{ID: "q2", Type: model.TypeOpen, Question: "Explique frações.", CorrectAnswer: "Partes de um todo.", Weight: 1},
		},
	}
}

func TestCorrectExam(t *testing.T) {
	payload := `{
		"score": 7.5,
		"maxScore": 10,
		"feedback": "Bom trabalho, continue praticando.",
		"detailedCorrection": [
			{"questionIndex": 0, "isCorrect": true, "studentAnswer": "4", "correctAnswer": "4", "comment": "Correto."},
			{"questionIndex": 1, "isCorrect": false, "studentAnswer": "pedaços", "correctAnswer": "Partes de um todo.", "comment": "Incompleto."}
		]
	}`
	client := newStubClient(t, payload)

	result, err := client.CorrectExam(context.Background(), correctionExam(), "1: 4\n2: pedaços")
	require.NoError(t, err)
	assert.Equal(t, 7.5, result.Score)
	assert.Equal(t, 10.0, result.MaxScore)
	assert.Len(t, result.DetailedCorrection, 2)
}

func TestCorrectExamMaxScoreDefault(t *testing.T) {
	payload := `{"score": 6, "feedback": "ok", "detailedCorrection": [{"questionIndex": 0, "isCorrect": true}]}`
	client := newStubClient(t, payload)

	result, err := client.CorrectExam(context.Background(), correctionExam(), "1: 4")
	require.NoError(t, err)
	assert.Equal(t, 10.0, result.MaxScore)
}

func TestCorrectExamShorterListAccepted(t *testing.T) {
	payload := `{"score": 5, "maxScore": 10, "feedback": "parcial", "detailedCorrection": [{"questionIndex": 1, "isCorrect": true}]}`
	client := newStubClient(t, payload)

	result, err := client.CorrectExam(context.Background(), correctionExam(), "2: partes de um todo")
	require.NoError(t, err)
	assert.Len(t, result.DetailedCorrection, 1)
}

func TestCorrectExamBadPayload(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "nota: dez"},
		{"score above max", `{"score": 12, "maxScore": 10, "feedback": "x", "detailedCorrection": []}`},
		{"index out of range", `{"score": 5, "maxScore": 10, "feedback": "x", "detailedCorrection": [{"questionIndex": 9, "isCorrect": true}]}`},
		{"duplicate index", `{"score": 5, "maxScore": 10, "feedback": "x", "detailedCorrection": [{"questionIndex": 0, "isCorrect": true}, {"questionIndex": 0, "isCorrect": false}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newStubClient(t, tt.content)
			_, err := client.CorrectExam(context.Background(), correctionExam(), "respostas")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadPayload)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around", "Here you go: {\"a\": 1}. Enjoy!", `{"a": 1}`},
		{"no object", "no json here", "no json here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}
