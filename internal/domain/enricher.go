package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// chunkNamespace is the fixed UUIDv5 namespace for chunk ids. Changing it
// would re-id the whole corpus, so it never changes.
var chunkNamespace = uuid.MustParse("7f9c54b2-3f6d-5e1a-9b0e-2d4c8a6f1e3b")

const (
	// maxChunkChars bounds a single chunk; longer articles are split into
	// parts at paragraph boundaries. Roughly 1000 tokens of Arabic text.
	maxChunkChars = 1500
	previewChars  = 200
)

// Enricher attaches law-level and chunk-level metadata to segmented spans.
type Enricher struct {
	normalizer *Normalizer
}

// NewEnricher creates an Enricher using normalizer for search-text and id
// derivation.
func NewEnricher(normalizer *Normalizer) *Enricher {
	return &Enricher{normalizer: normalizer}
}

// Enrich turns a span into one or more chunks carrying the document's
// identity, a deterministic content-derived id, and the page the span starts
// on. It fails only when docCtx is missing country or law name; a span whose
// offset is not covered by any page boundary gets a nil page, not an error.
func (e *Enricher) Enrich(span Span, docCtx DocumentContext, batchID uuid.UUID) ([]Chunk, error) {
	if docCtx.Country == "" || docCtx.LawName == "" {
		return nil, fmt.Errorf("%w: country and law name are required", ErrMetadata)
	}

	page := pageForOffset(span.Start, docCtx.PageOffsets)
	parts := splitLongSpan(span.Text)
	now := time.Now()

	chunks := make([]Chunk, 0, len(parts))
	for i, text := range parts {
		if len(parts) > 1 && i > 0 {
			text = partIndicator(span.ArticleNumber, i+1, len(parts)) + text
		}
		search := e.normalizer.Normalize(text, NormalizeSearch)
		chunks = append(chunks, Chunk{
			ID:            chunkID(docCtx.Country, docCtx.LawName, span.ArticleNumber, search),
			BatchID:       batchID,
			Country:       docCtx.Country,
			LawName:       docCtx.LawName,
			LawNameEn:     docCtx.LawNameEn,
			LawType:       docCtx.LawType,
			ArticleNumber: span.ArticleNumber,
			Chapter:       span.Chapter,
			PageNumber:    page,
			Part:          i + 1,
			TotalParts:    len(parts),
			DisplayText:   text,
			SearchText:    search,
			CreatedAt:     now,
		})
	}

	return chunks, nil
}

// chunkID derives a stable UUIDv5 from the chunk's identity so re-ingesting
// an unchanged document reproduces the same ids.
func chunkID(country, lawName string, articleNumber *int, searchText string) uuid.UUID {
	art := "preamble"
	if articleNumber != nil {
		art = strconv.Itoa(*articleNumber)
	}
	name := strings.Join([]string{country, lawName, art, searchText}, "\x1f")
	return uuid.NewSHA1(chunkNamespace, []byte(name))
}

// pageForOffset maps a byte offset to the page whose range covers it.
// Returns nil when no boundary covers the offset.
func pageForOffset(offset int, pageOffsets []int) *int {
	if len(pageOffsets) == 0 {
		return nil
	}
	i := sort.SearchInts(pageOffsets, offset+1) // last boundary <= offset
	if i == 0 {
		return nil
	}
	page := i // pages are 1-based
	return &page
}

// splitLongSpan splits text into parts no longer than maxChunkChars at
// paragraph boundaries, falling back to a hard cut for a single oversized
// paragraph.
func splitLongSpan(text string) []string {
	if len(text) <= maxChunkChars {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		if current.Len() > 0 && current.Len()+len(para)+2 > maxChunkChars {
			parts = append(parts, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		for len(para) > maxChunkChars {
			cut := maxChunkChars
			for cut > 0 && para[cut]&0xC0 == 0x80 { // do not cut mid-rune
				cut--
			}
			parts = append(parts, current.String()+para[:cut])
			current.Reset()
			para = para[cut:]
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func partIndicator(articleNumber *int, part, total int) string {
	art := "مقدمة"
	if articleNumber != nil {
		art = ToArabicDigits(strconv.Itoa(*articleNumber))
	}
	return fmt.Sprintf("[مادة %s - جزء %s من %s]\n\n",
		art, ToArabicDigits(strconv.Itoa(part)), ToArabicDigits(strconv.Itoa(total)))
}

// Citation renders the chunk's legal citation, e.g.
// "قانون العقوبات - مادة ٥ (صفحة ١٢)".
func (c *Chunk) Citation() string {
	var b strings.Builder
	b.WriteString(c.LawName)
	if c.ArticleNumber != nil {
		b.WriteString(" - مادة ")
		b.WriteString(ToArabicDigits(strconv.Itoa(*c.ArticleNumber)))
	}
	if c.PageNumber != nil {
		b.WriteString(" (صفحة ")
		b.WriteString(ToArabicDigits(strconv.Itoa(*c.PageNumber)))
		b.WriteString(")")
	}
	return b.String()
}

// Preview returns the first previewChars bytes of display text, on a rune
// boundary, for use in citations.
func (c *Chunk) Preview() string {
	if len(c.DisplayText) <= previewChars {
		return c.DisplayText
	}
	cut := previewChars
	for cut > 0 && c.DisplayText[cut]&0xC0 == 0x80 {
		cut--
	}
	return c.DisplayText[:cut] + "..."
}
