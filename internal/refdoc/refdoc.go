// Package refdoc extracts plain text from uploaded reference documents so
// their content can travel inside a text prompt.
package refdoc

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// pdfMagic is the header every PDF starts with.
var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data looks like a PDF document.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// Available reports whether the pdftotext binary can be found.
func Available() bool {
	_, err := exec.LookPath("pdftotext")
	return err == nil
}

// ExtractText runs pdftotext over the document and returns the extracted
// text. The caller decides whether a failure is fatal; generation can proceed
// without the extracted text.
func ExtractText(pdf []byte) (string, error) {
	if !IsPDF(pdf) {
		return "", fmt.Errorf("not a PDF document")
	}

	cmd := exec.Command("pdftotext", "-", "-")
	cmd.Stdin = bytes.NewReader(pdf)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}
