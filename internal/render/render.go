// Package render turns an Exam into its printable document form. The
// transform is pure and deterministic: identical input yields identical
// output, so the interactive preview and the export always match.
package render

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/iaeduca/provagen/internal/model"
)

const (
	pageWidth = 72
	// Open-response questions get this many blank answer lines.
	answerLineCount = 3
)

// Choice is one lettered alternative of a multiple-choice question.
type Choice struct {
	Letter string
	Text   string
}

// QuestionBlock is one numbered question as laid out on the paper.
// AnswerLines is non-zero only for open-response questions.
type QuestionBlock struct {
	Number      int
	Prompt      string
	Choices     []Choice
	AnswerLines int
}

// Document is the fixed-layout printable form of an exam: boxed identity
// header, centered title block, optional instructions panel, numbered
// questions.
type Document struct {
	School       string
	Teacher      string
	Title        string
	Subtitle     string
	Instructions string
	Questions    []QuestionBlock
}

// Build lays out an exam as a Document. Question numbering starts at 1 in
// list order; choice letters start at 'A'.
func Build(exam model.Exam) Document {
	doc := Document{
		School:       strings.ToUpper(exam.SchoolName),
		Teacher:      exam.TeacherName,
		Title:        strings.ToUpper(exam.Title),
		Subtitle:     exam.Subject + " - " + exam.Grade,
		Instructions: exam.Instructions,
	}
	for i, q := range exam.Questions {
		block := QuestionBlock{
			Number: i + 1,
			Prompt: q.Question,
		}
		if q.Type == model.TypeMultiple {
			for j, opt := range q.Options {
				block.Choices = append(block.Choices, Choice{
					Letter: string(rune('A' + j)),
					Text:   opt,
				})
			}
		} else {
			block.AnswerLines = answerLineCount
		}
		doc.Questions = append(doc.Questions, block)
	}
	return doc
}

// Plain renders the document as fixed-width text.
func (d Document) Plain() string {
	var sb strings.Builder
	rule := strings.Repeat("=", pageWidth)
	thin := strings.Repeat("-", pageWidth)

	sb.WriteString(rule + "\n")
	sb.WriteString(" " + d.School + "\n")
	sb.WriteString(" Professor(a): " + d.Teacher + "\n")
	sb.WriteString(" DATA: ____/____/____\n")
	sb.WriteString(thin + "\n")
	sb.WriteString(" ALUNO(A): _____________________________________________________\n")
	sb.WriteString(" TURMA: _________ | NOTA: _________\n")
	sb.WriteString(rule + "\n\n")

	sb.WriteString(center(d.Title) + "\n")
	sb.WriteString(center(d.Subtitle) + "\n\n")

	if d.Instructions != "" {
		sb.WriteString("INSTRUÇÕES:\n")
		sb.WriteString(d.Instructions + "\n\n")
	}

	for _, q := range d.Questions {
		sb.WriteString("QUESTÃO " + strconv.Itoa(q.Number) + ":\n")
		sb.WriteString(q.Prompt + "\n\n")
		for _, c := range q.Choices {
			sb.WriteString(c.Letter + ") " + c.Text + "\n")
		}
		for i := 0; i < q.AnswerLines; i++ {
			sb.WriteString(strings.Repeat("_", pageWidth) + "\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func center(s string) string {
	width := utf8.RuneCountInString(s)
	if width >= pageWidth {
		return s
	}
	return strings.Repeat(" ", (pageWidth-width)/2) + s
}

var unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeFilename derives a download file name from an exam title.
func SanitizeFilename(title string) string {
	name := strings.Join(strings.Fields(title), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "prova"
	}
	return name
}
