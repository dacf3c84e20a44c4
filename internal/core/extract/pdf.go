package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor yields plain text from a PDF one page at a time. The page
// sequence is restartable (it re-opens the reader on every call) and may
// fail mid-stream; callers receive every successfully extracted page before
// the error.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Pages calls yield for each page of text in order. A false return from
// yield stops extraction early without error. An error after one or more
// successful yields leaves the caller with usable partial content.
func (e *PDFExtractor) Pages(ctx context.Context, raw []byte, yield func(pageNumber int, text string) bool) error {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return fmt.Errorf("open PDF: %w", err)
	}

	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return fmt.Errorf("extract page %d: %w", i, err)
		}
		if text == "" {
			continue
		}
		if !yield(i, text) {
			return nil
		}
	}
	return nil
}
