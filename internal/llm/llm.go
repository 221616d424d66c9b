// Package llm is the gateway to the external AI provider. It exposes the two
// operations the application delegates: exam generation and correction. Both
// are single blocking requests with no retry and no state in the gateway.
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/iaeduca/provagen/internal/llm/prompts"
	"github.com/iaeduca/provagen/internal/model"
	"github.com/iaeduca/provagen/internal/refdoc"
)

// Sentinel errors for the provider contract. Callers map these onto the
// generation-failure / correction-failure notices.
var (
	ErrNoChoices     = errors.New("provider returned no choices")
	ErrBadPayload    = errors.New("malformed provider payload")
	ErrQuestionCount = errors.New("provider returned wrong question count")
)

// Client wraps an OpenAI-compatible API client. Generation and correction may
// use different models.
type Client struct {
	api          *openai.Client
	genModel     string
	correctModel string
}

// New creates a new gateway client.
func New(baseURL, apiKey, genModel, correctModel string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if correctModel == "" {
		correctModel = genModel
	}
	return &Client{
		api:          openai.NewClientWithConfig(config),
		genModel:     genModel,
		correctModel: correctModel,
	}
}

// Ping checks that the provider endpoint answers at all.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// generatedExam is the wire shape of a generation response.
type generatedExam struct {
	Title        string           `json:"title"`
	Subject      string           `json:"subject"`
	Grade        string           `json:"grade"`
	Instructions string           `json:"instructions"`
	Questions    []model.Question `json:"questions"`
}

// GenerateExam asks the provider for a complete exam. The returned exam
// carries no identifier, date, or teacher identity; the caller augments it
// before it enters the store. On any contract violation no partial exam is
// returned.
func (c *Client) GenerateExam(ctx context.Context, params model.GenerateParams) (*model.Exam, error) {
	referenceText := params.ReferenceText
	hasDocument := params.PDFData != ""

	if hasDocument {
		pdf, err := base64.StdEncoding.DecodeString(params.PDFData)
		if err != nil {
			return nil, fmt.Errorf("decode reference document: %w", err)
		}
		// The chat boundary cannot carry inline binary attachments, so the
		// document travels as extracted text. Generation proceeds without it
		// when extraction is not possible.
		text, err := refdoc.ExtractText(pdf)
		if err != nil {
			slog.Warn("reference document text extraction failed", "error", err)
		} else if text != "" {
			if referenceText != "" {
				referenceText += "\n\n"
			}
			referenceText += text
		}
	}

	prompt, err := prompts.BuildGenerate(params, referenceText, hasDocument)
	if err != nil {
		return nil, err
	}

	raw, err := c.complete(ctx, c.genModel, prompt, 0.3)
	if err != nil {
		return nil, err
	}

	var gen generatedExam
	if err := json.Unmarshal([]byte(extractJSON(raw)), &gen); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", ErrBadPayload, err, raw)
	}

	exam, err := normalizeGenerated(gen, params.Count)
	if err != nil {
		return nil, err
	}
	return exam, nil
}

// normalizeGenerated validates the provider payload against the request and
// fills contract defaults: weight 1.0 when omitted, fresh identifiers for
// missing or duplicated question IDs.
func normalizeGenerated(gen generatedExam, count int) (*model.Exam, error) {
	if gen.Title == "" || gen.Subject == "" || gen.Grade == "" {
		return nil, fmt.Errorf("%w: missing required exam fields", ErrBadPayload)
	}
	if len(gen.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrBadPayload)
	}
	if len(gen.Questions) != count {
		return nil, fmt.Errorf("%w: requested %d, got %d", ErrQuestionCount, count, len(gen.Questions))
	}

	seen := make(map[string]bool, len(gen.Questions))
	for i := range gen.Questions {
		q := &gen.Questions[i]
		if q.Question == "" {
			return nil, fmt.Errorf("%w: question %d has no text", ErrBadPayload, i+1)
		}
		if q.CorrectAnswer == "" {
			return nil, fmt.Errorf("%w: question %d has no answer key", ErrBadPayload, i+1)
		}
		switch q.Type {
		case model.TypeMultiple:
			if len(q.Options) < 2 {
				return nil, fmt.Errorf("%w: question %d is multiple-choice without options", ErrBadPayload, i+1)
			}
		case model.TypeOpen:
			q.Options = nil
		default:
			return nil, fmt.Errorf("%w: question %d has unknown type %q", ErrBadPayload, i+1, q.Type)
		}
		if q.Weight <= 0 {
			q.Weight = 1.0
		}
		if q.ID == "" || seen[q.ID] {
			q.ID = uuid.NewString()
		}
		seen[q.ID] = true
	}

	return &model.Exam{
		Title:        gen.Title,
		Subject:      gen.Subject,
		Grade:        gen.Grade,
		Instructions: gen.Instructions,
		Questions:    gen.Questions,
	}, nil
}

// CorrectExam grades one student transcript against one exam. The provider's
// detailed correction is validated for index integrity before it is accepted;
// a list shorter than the question count passes through and renders as
// ungraded items.
func (c *Client) CorrectExam(ctx context.Context, exam model.Exam, studentAnswers string) (*model.CorrectionResult, error) {
	prompt, err := prompts.BuildCorrect(exam, studentAnswers)
	if err != nil {
		return nil, err
	}

	raw, err := c.complete(ctx, c.correctModel, prompt, 0.1)
	if err != nil {
		return nil, err
	}

	var result model.CorrectionResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", ErrBadPayload, err, raw)
	}

	if result.MaxScore == 0 {
		result.MaxScore = 10
	}
	if err := result.Validate(len(exam.Questions)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return &result, nil
}

func (c *Client) complete(ctx context.Context, modelName, prompt string, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("provider call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("provider response", "model", modelName, "raw", raw)
	return raw, nil
}

// extractJSON trims anything around the outermost JSON object, e.g. markdown
// fences some models insist on.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}
