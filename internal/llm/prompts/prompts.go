// Package prompts builds the natural-language instructions sent to the AI
// provider. The templates are Portuguese because the generated papers are.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/iaeduca/provagen/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	generateTmpl = template.Must(template.ParseFS(templateFS, "templates/generate.txt"))
	correctTmpl  = template.Must(template.ParseFS(templateFS, "templates/correct.txt"))
)

// Tag-like markup is stripped from student transcripts before they are
// embedded in a prompt, so a transcript cannot smuggle instructions.
var (
	answerTagRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	instructionTagRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxTranscriptRunes = 10000

// generateData holds template data for the generation prompt.
type generateData struct {
	Subject       string
	Topic         string
	Grade         string
	Count         int
	Difficulty    string
	HasReference  bool
	ReferenceText string
}

// correctData holds template data for the correction prompt.
type correctData struct {
	Subject        string
	ContextJSON    string
	StudentAnswers string
}

// DifficultyLabel maps a difficulty level to the label used in prompts.
func DifficultyLabel(d model.Difficulty) string {
	switch d {
	case model.DifficultyEasy:
		return "Fácil"
	case model.DifficultyHard:
		return "Difícil"
	default:
		return "Média"
	}
}

// BuildGenerate renders the generation instruction. referenceText is the
// combined free-text reference material (including any text extracted from an
// uploaded document); hasDocument marks that a reference document was
// supplied even when no text could be extracted from it.
func BuildGenerate(params model.GenerateParams, referenceText string, hasDocument bool) (string, error) {
	data := generateData{
		Subject:       params.Subject,
		Topic:         params.Topic,
		Grade:         params.Grade,
		Count:         params.Count,
		Difficulty:    DifficultyLabel(params.Difficulty),
		HasReference:  hasDocument || strings.TrimSpace(referenceText) != "",
		ReferenceText: strings.TrimSpace(referenceText),
	}
	var buf bytes.Buffer
	if err := generateTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute generate template: %w", err)
	}
	return buf.String(), nil
}

// questionContext is the per-question slice of the exam embedded in the
// correction prompt. The short field names are part of the prompt contract.
type questionContext struct {
	Q      string  `json:"q"`
	Ans    string  `json:"ans"`
	Weight float64 `json:"weight"`
}

// BuildCorrect renders the correction instruction for one exam and one raw
// student transcript.
func BuildCorrect(exam model.Exam, studentAnswers string) (string, error) {
	ctx := make([]questionContext, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		ctx = append(ctx, questionContext{Q: q.Question, Ans: q.CorrectAnswer, Weight: q.Weight})
	}
	ctxJSON, err := json.Marshal(ctx)
	if err != nil {
		return "", fmt.Errorf("marshal question context: %w", err)
	}

	data := correctData{
		Subject:        exam.Subject,
		ContextJSON:    string(ctxJSON),
		StudentAnswers: SanitizeTranscript(studentAnswers),
	}
	var buf bytes.Buffer
	if err := correctTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute correct template: %w", err)
	}
	return buf.String(), nil
}

// SanitizeTranscript strips markup that could be read as instructions and
// truncates very long transcripts.
func SanitizeTranscript(answers string) string {
	answers = answerTagRegex.ReplaceAllString(answers, "")
	answers = instructionTagRegex.ReplaceAllString(answers, "")
	answers = strings.TrimSpace(answers)

	if answers == "" {
		return "[Nenhuma resposta enviada]"
	}

	if utf8.RuneCountInString(answers) > maxTranscriptRunes {
		runes := []rune(answers)
		answers = string(runes[:maxTranscriptRunes]) + "\n\n[Transcrição truncada por tamanho]"
	}

	return answers
}
