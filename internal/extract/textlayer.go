package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// TextLayer reads the embedded text of a PDF, all pages in order.
type TextLayer interface {
	Text(data []byte) (string, error)
}

// PDFTextLayer reads text layers with ledongthuc/pdf.
type PDFTextLayer struct{}

func (PDFTextLayer) Text(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", nil
	}

	// The parser panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading text layer: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("reading text layer: %w", err)
	}
	return string(out), nil
}
