package render

import (
	"bytes"
	"testing"
)

func TestWritePDF(t *testing.T) {
	doc := Build(sampleExam())

	var buf bytes.Buffer
	if err := WritePDF(doc, &buf); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty PDF output")
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output does not start with PDF header: %q", buf.Bytes()[:8])
	}
}

func TestWritePDFDeterministic(t *testing.T) {
	doc := Build(sampleExam())

	var first, second bytes.Buffer
	if err := WritePDF(doc, &first); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if err := WritePDF(doc, &second); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("identical documents produced different PDF bytes")
	}
}

func TestWritePDFManyQuestions(t *testing.T) {
	exam := sampleExam()
	for i := 0; i < 30; i++ {
		q := exam.Questions[1]
		q.ID = q.ID + "x"
		exam.Questions = append(exam.Questions, q)
	}

	var buf bytes.Buffer
	if err := WritePDF(Build(exam), &buf); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty PDF output")
	}
}
