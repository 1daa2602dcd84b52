package pdffile

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
)

// Extractor reads raw per-page text from a PDF on disk. Layout fidelity
// is not a goal; the noise reducer downstream deals with the artifacts
// of plain-text extraction.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.PageRecord, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]domain.PageRecord, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", i, path, err)
		}
		pages = append(pages, domain.PageRecord{
			PageNumber: i,
			Text:       text,
			CharCount:  len(text),
		})
	}
	return pages, nil
}
