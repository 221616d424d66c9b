package render

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
)

// Fixed document dates keep the PDF bytes stable for identical input.
var pdfEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// WritePDF renders the document as an A4 portrait PDF with fixed margins and
// writes it to w.
func WritePDF(doc Document, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetModificationDate(pdfEpoch)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	// Boxed identity header.
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(usable, 8, tr(doc.School), "LTR", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(usable/2, 6, tr("Professor(a): "+doc.Teacher), "L", 0, "L", false, 0, "")
	pdf.CellFormat(usable/2, 6, "DATA: ____/____/____", "R", 1, "R", false, 0, "")
	pdf.CellFormat(usable, 6, tr("ALUNO(A): ________________________________________________"), "LR", 1, "L", false, 0, "")
	pdf.CellFormat(usable, 6, "TURMA: _________ | NOTA: _________", "LBR", 1, "L", false, 0, "")
	pdf.Ln(6)

	// Centered title block.
	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(usable, 8, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(usable, 6, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if doc.Instructions != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(usable, 6, tr("INSTRUÇÕES:"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(usable, 5, tr(doc.Instructions), "1", "L", false)
		pdf.Ln(4)
	}

	for _, q := range doc.Questions {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(usable, 7, tr("QUESTÃO "+strconv.Itoa(q.Number)+":"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(usable, 5, tr(q.Prompt), "", "J", false)
		pdf.Ln(2)

		for _, c := range q.Choices {
			pdf.MultiCell(usable-8, 5, tr(c.Letter+") "+c.Text), "", "L", false)
		}
		for i := 0; i < q.AnswerLines; i++ {
			pdf.Ln(6)
			x, y := pdf.GetXY()
			pdf.SetDrawColor(0, 0, 0)
			pdf.Line(x, y, x+usable, y)
		}
		pdf.Ln(6)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
