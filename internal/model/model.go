package model

import "fmt"

// QuestionType distinguishes multiple-choice from open-response questions.
type QuestionType string

const (
	TypeMultiple QuestionType = "multiple"
	TypeOpen     QuestionType = "open"
)

// Difficulty represents the requested difficulty level for generation.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ViewState identifies one of the application screens.
type ViewState string

const (
	ViewDashboard ViewState = "dashboard"
	ViewCreate    ViewState = "create"
	ViewEdit      ViewState = "edit"
	ViewCorrect   ViewState = "correct"
	ViewPrint     ViewState = "print"
	ViewSettings  ViewState = "settings"
)

// ValidView reports whether v names a known screen.
func ValidView(v ViewState) bool {
	switch v {
	case ViewDashboard, ViewCreate, ViewEdit, ViewCorrect, ViewPrint, ViewSettings:
		return true
	}
	return false
}

// Question is a single assessable item. Options is present only for
// multiple-choice questions; Weight is the question's relative contribution
// to the normalized score (default 1.0).
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Weight        float64      `json:"weight"`
}

// Exam is the authoritative unit of an assessment: metadata plus an ordered
// question list. Question order defines numbering on the printed paper.
type Exam struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Subject      string     `json:"subject"`
	Grade        string     `json:"grade"`
	Date         string     `json:"date"`
	SchoolName   string     `json:"schoolName"`
	TeacherName  string     `json:"teacherName"`
	Questions    []Question `json:"questions"`
	Instructions string     `json:"instructions"`
}

// Validate checks the exam invariants: unique question identifiers and a
// non-empty options list on every multiple-choice question.
func (e Exam) Validate() error {
	seen := make(map[string]bool, len(e.Questions))
	for i, q := range e.Questions {
		if q.ID == "" {
			return fmt.Errorf("question %d: empty identifier", i+1)
		}
		if seen[q.ID] {
			return fmt.Errorf("question %d: duplicate identifier %q", i+1, q.ID)
		}
		seen[q.ID] = true
		switch q.Type {
		case TypeMultiple:
			if len(q.Options) == 0 {
				return fmt.Errorf("question %d: multiple-choice without options", i+1)
			}
		case TypeOpen:
		default:
			return fmt.Errorf("question %d: unknown type %q", i+1, q.Type)
		}
	}
	return nil
}

// CorrectionItem is the per-question outcome inside a CorrectionResult.
// QuestionIndex is 0-based into the originating exam's question list.
type CorrectionItem struct {
	QuestionIndex int    `json:"questionIndex"`
	IsCorrect     bool   `json:"isCorrect"`
	StudentAnswer string `json:"studentAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Comment       string `json:"comment"`
}

// CorrectionResult is the outcome of grading one submission against one exam.
// It is transient state: replaced atomically as a unit, never persisted.
type CorrectionResult struct {
	Score              float64          `json:"score"`
	MaxScore           float64          `json:"maxScore"`
	Feedback           string           `json:"feedback"`
	DetailedCorrection []CorrectionItem `json:"detailedCorrection"`
}

// Validate checks the provider's output contract against the originating
// exam: score within [0, MaxScore], every question index in range and used at
// most once. A detailedCorrection list shorter than the question count is
// legal; the missing questions render as ungraded.
func (c CorrectionResult) Validate(questionCount int) error {
	if c.MaxScore <= 0 {
		return fmt.Errorf("non-positive max score %v", c.MaxScore)
	}
	if c.Score < 0 || c.Score > c.MaxScore {
		return fmt.Errorf("score %v outside [0, %v]", c.Score, c.MaxScore)
	}
	seen := make(map[int]bool, len(c.DetailedCorrection))
	for _, item := range c.DetailedCorrection {
		if item.QuestionIndex < 0 || item.QuestionIndex >= questionCount {
			return fmt.Errorf("question index %d outside [0, %d)", item.QuestionIndex, questionCount)
		}
		if seen[item.QuestionIndex] {
			return fmt.Errorf("duplicate question index %d", item.QuestionIndex)
		}
		seen[item.QuestionIndex] = true
	}
	return nil
}

// ReportEntry is one row of a correction report, aligned to an exam question.
// Graded is false when the provider returned no item for the question.
type ReportEntry struct {
	QuestionIndex int     `json:"questionIndex"`
	Question      string  `json:"question"`
	Graded        bool    `json:"graded"`
	IsCorrect     bool    `json:"isCorrect"`
	StudentAnswer string  `json:"studentAnswer"`
	CorrectAnswer string  `json:"correctAnswer"`
	Comment       string  `json:"comment"`
	Weight        float64 `json:"weight"`
}

// CorrectionReport pairs a correction result with one entry per exam
// question, in question order.
type CorrectionReport struct {
	Score    float64       `json:"score"`
	MaxScore float64       `json:"maxScore"`
	Feedback string        `json:"feedback"`
	Entries  []ReportEntry `json:"entries"`
}

// BuildCorrectionReport aligns a correction result to the exam's question
// list by index. Items the provider omitted become ungraded entries;
// out-of-range indices are skipped rather than breaking the rendering.
func BuildCorrectionReport(exam Exam, result CorrectionResult) CorrectionReport {
	byIndex := make(map[int]CorrectionItem, len(result.DetailedCorrection))
	for _, item := range result.DetailedCorrection {
		if item.QuestionIndex < 0 || item.QuestionIndex >= len(exam.Questions) {
			continue
		}
		byIndex[item.QuestionIndex] = item
	}

	report := CorrectionReport{
		Score:    result.Score,
		MaxScore: result.MaxScore,
		Feedback: result.Feedback,
	}
	for i, q := range exam.Questions {
		entry := ReportEntry{
			QuestionIndex: i,
			Question:      q.Question,
			CorrectAnswer: q.CorrectAnswer,
			Weight:        q.Weight,
		}
		if item, ok := byIndex[i]; ok {
			entry.Graded = true
			entry.IsCorrect = item.IsCorrect
			entry.StudentAnswer = item.StudentAnswer
			if item.CorrectAnswer != "" {
				entry.CorrectAnswer = item.CorrectAnswer
			}
			entry.Comment = item.Comment
		}
		report.Entries = append(report.Entries, entry)
	}
	return report
}

// UserSettings is the teacher identity and default instruction block applied
// to newly generated exams. Persisted as one unit.
type UserSettings struct {
	TeacherName         string `json:"teacherName"`
	SchoolName          string `json:"schoolName"`
	DefaultInstructions string `json:"defaultInstructions"`
}

// DefaultSettings returns the built-in settings used when nothing has been
// persisted yet.
func DefaultSettings() UserSettings {
	return UserSettings{
		DefaultInstructions: "1. Leia atentamente todas as questões.\n" +
			"2. Utilize caneta azul ou preta.\n" +
			"3. Não é permitido o uso de corretor líquido.\n" +
			"4. Revisar as respostas antes de entregar.",
	}
}

// GenerateParams are the inputs to the exam-generation call. ReferenceText
// and PDFData (base64) optionally steer the provider toward an existing
// paper's phrasing and structure.
type GenerateParams struct {
	Subject       string
	Topic         string
	Grade         string
	Count         int
	Difficulty    Difficulty
	ReferenceText string
	PDFData       string
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	Addr            string
	DBPath          string
	Lang            string
	LLMURL          string
	LLMKey          string
	LLMModel        string // generation model
	LLMCorrectModel string // correction model, may equal LLMModel
}
