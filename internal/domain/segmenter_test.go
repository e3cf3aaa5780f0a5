package domain_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"law-rag/internal/domain"
)

func newTestSegmenter() *domain.Segmenter {
	return domain.NewSegmenter(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestSegment_SplitsOnMarkers(t *testing.T) {
	s := newTestSegmenter()

	spans := s.Segment("مادة 1 نص أول مادة 2 نص ثاني")

	require.Len(t, spans, 2)
	require.NotNil(t, spans[0].ArticleNumber)
	assert.Equal(t, 1, *spans[0].ArticleNumber)
	assert.Equal(t, "مادة 1 نص أول", spans[0].Text)
	require.NotNil(t, spans[1].ArticleNumber)
	assert.Equal(t, 2, *spans[1].ArticleNumber)
	assert.Equal(t, "مادة 2 نص ثاني", spans[1].Text)
}

func TestSegment_PreambleBeforeFirstMarker(t *testing.T) {
	s := newTestSegmenter()

	spans := s.Segment("قانون العمل لسنة 1996\nالمادة ١ تعاريف\nالمادة ٢ نطاق التطبيق")

	require.Len(t, spans, 3)
	assert.Nil(t, spans[0].ArticleNumber)
	assert.Equal(t, "قانون العمل لسنة 1996", spans[0].Text)
	require.NotNil(t, spans[1].ArticleNumber)
	assert.Equal(t, 1, *spans[1].ArticleNumber)
	require.NotNil(t, spans[2].ArticleNumber)
	assert.Equal(t, 2, *spans[2].ArticleNumber)
}

func TestSegment_MarkerForms(t *testing.T) {
	s := newTestSegmenter()

	tests := []struct {
		name string
		text string
		num  int
	}{
		{"parenthesized", "المادة (٥) نص", 5},
		{"parenthesized western", "مادة (12) نص", 12},
		{"bracketed", "المادة [٧] نص", 7},
		{"definite arabic", "المادة ٢٥ نص", 25},
		{"definite western", "المادة 25 نص", 25},
		{"bare arabic", "مادة ٣ نص", 3},
		{"bare western", "مادة 3 نص", 3},
		{"dash separator", "المادة - ٤ نص", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := s.Segment(tt.text)
			require.Len(t, spans, 1)
			require.NotNil(t, spans[0].ArticleNumber)
			assert.Equal(t, tt.num, *spans[0].ArticleNumber)
		})
	}
}

func TestSegment_NoMarkers(t *testing.T) {
	s := newTestSegmenter()

	spans := s.Segment("نص تمهيدي بدون مواد")
	require.Len(t, spans, 1)
	assert.Nil(t, spans[0].ArticleNumber)

	assert.Empty(t, s.Segment("   \n\t  "))
	assert.Empty(t, s.Segment(""))
}

func TestSegment_ConsecutiveMarkersKeepEmptyBodies(t *testing.T) {
	s := newTestSegmenter()

	spans := s.Segment("المادة ١ المادة ٢ المادة ٣ نص")

	// Articles with no body between them still get their own span so the
	// article sequence stays contiguous.
	require.Len(t, spans, 3)
	for i, span := range spans {
		require.NotNil(t, span.ArticleNumber)
		assert.Equal(t, i+1, *span.ArticleNumber)
	}
}

func TestSegment_DecreasingNumbersStillEmitted(t *testing.T) {
	s := newTestSegmenter()

	spans := s.Segment("المادة ٥ نص المادة ٣ نص آخر")

	require.Len(t, spans, 2)
	assert.Equal(t, 5, *spans[0].ArticleNumber)
	assert.Equal(t, 3, *spans[1].ArticleNumber)
}

func TestSegment_Deterministic(t *testing.T) {
	s := newTestSegmenter()
	text := "تمهيد المادة ١ نص أول المادة ٢ نص ثاني المادة ٣ نص ثالث"

	first := s.Segment(text)
	second := s.Segment(text)

	assert.Equal(t, first, second)
}

func TestSegment_ChapterExtraction(t *testing.T) {
	s := newTestSegmenter()

	spans := s.Segment("الباب الأول أحكام عامة\nالمادة ١ نص")

	require.Len(t, spans, 2)
	assert.Equal(t, "الباب الأول", spans[0].Chapter)
}
