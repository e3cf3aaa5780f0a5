package pdfext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dslipak/pdf"

	"law-rag/internal/domain"
)

// Extractor implements domain.PageTextExtractor over in-memory PDF bytes.
// Pages that yield no text (scans, images) are kept as empty pages so page
// numbering stays aligned with the source document.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a PDF text extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract returns the concatenated page text plus the byte offset where each
// page starts. Malformed PDFs and PDFs with no extractable text at all are
// errors; the caller decides how to classify them.
func (e *Extractor) Extract(ctx context.Context, pdfBytes []byte) (*domain.ExtractedText, error) {
	if len(pdfBytes) == 0 {
		return nil, fmt.Errorf("empty pdf input")
	}

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var (
		b        strings.Builder
		offsets  []int
		nonEmpty int
	)
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		offsets = append(offsets, b.Len())

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("page_text_extraction_failed",
				slog.Int("page", i),
				slog.String("error", err.Error()))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		nonEmpty++
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteByte('\n')
		}
	}

	if nonEmpty == 0 {
		return nil, fmt.Errorf("pdf contains no extractable text across %d pages", numPages)
	}

	e.logger.Info("pdf_extracted",
		slog.Int("page_count", numPages),
		slog.Int("pages_with_text", nonEmpty),
		slog.Int("text_bytes", b.Len()))

	return &domain.ExtractedText{
		FullText:    b.String(),
		PageOffsets: offsets,
	}, nil
}

var _ domain.PageTextExtractor = (*Extractor)(nil)
