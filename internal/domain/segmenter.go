package domain

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Span is one article-bounded stretch of document text. ArticleNumber is nil
// for the preamble span that precedes the first recognized marker.
type Span struct {
	Text          string
	ArticleNumber *int
	MarkerText    string
	Chapter       string
	Start         int // byte offset into the segmented text
}

// markerPattern couples a compiled article-marker regex with its surface form
// name for logging. Patterns are tried in order at each candidate boundary:
// the containing forms (parenthesized, bracketed) come before the bare forms
// so that "مادة (٥)" is never tokenized as the bare "مادة ٥".
type markerPattern struct {
	form string
	re   *regexp.Regexp
}

// The marker token comes in definite ("المادة") and indefinite ("مادة") form,
// optionally separated from the number by a dash, with the number written in
// Arabic-Indic or Western digits, bare or wrapped in parentheses or brackets.
var markerPatterns = []markerPattern{
	{"parenthesized", regexp.MustCompile(`^(?:المادة|مادة)\s*[-–—]?\s*\(\s*([٠-٩0-9]+)\s*\)`)},
	{"bracketed", regexp.MustCompile(`^(?:المادة|مادة)\s*[-–—]?\s*\[\s*([٠-٩0-9]+)\s*\]`)},
	{"definite_arabic", regexp.MustCompile(`^المادة\s*[-–—]?\s*([٠-٩]+)`)},
	{"definite_western", regexp.MustCompile(`^المادة\s*[-–—]?\s*([0-9]+)`)},
	{"bare_arabic", regexp.MustCompile(`^مادة\s*[-–—]?\s*([٠-٩]+)`)},
	{"bare_western", regexp.MustCompile(`^مادة\s*[-–—]?\s*([0-9]+)`)},
}

// markerLocator finds candidate boundaries cheaply; the prioritized patterns
// then decide whether a real marker starts there. "المادة" is listed first so
// the locator does not stop inside it on the embedded "مادة".
var markerLocator = regexp.MustCompile(`المادة|مادة`)

var chapterPattern = regexp.MustCompile(`(?:الباب|الفصل|القسم)\s*(?:الأول|الثاني|الثالث|الرابع|الخامس|السادس|السابع|الثامن|التاسع|العاشر|[٠-٩0-9]+)`)

// Segmenter splits legal document text into article-bounded spans.
type Segmenter struct {
	logger *slog.Logger
}

// NewSegmenter creates a Segmenter. Non-fatal data-quality findings (such as
// decreasing article numbers) are reported through logger.
func NewSegmenter(logger *slog.Logger) *Segmenter {
	return &Segmenter{logger: logger}
}

type marker struct {
	number int
	text   string
	start  int
	end    int
}

// Segment splits text into ordered spans. Text before the first marker
// becomes a single preamble span with nil article number; consecutive markers
// with nothing between them yield empty-body spans so citation numbering
// stays contiguous. Re-segmenting the same text yields the same spans.
func (s *Segmenter) Segment(text string) []Span {
	markers := s.findMarkers(text)

	var spans []Span

	if len(markers) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			spans = append(spans, Span{
				Text:    trimmed,
				Chapter: extractChapter(trimmed),
			})
		}
		return spans
	}

	if preamble := strings.TrimSpace(text[:markers[0].start]); preamble != "" {
		spans = append(spans, Span{
			Text:    preamble,
			Chapter: extractChapter(preamble),
		})
	}

	prev := -1
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1].start
		}

		if prev >= 0 && m.number < prev {
			s.logger.Warn("segmentation_anomaly",
				slog.String("kind", "decreasing_article_number"),
				slog.Int("previous", prev),
				slog.Int("current", m.number),
				slog.Int("offset", m.start))
		}
		prev = m.number

		num := m.number
		body := strings.TrimSpace(text[m.start:end])
		spans = append(spans, Span{
			Text:          body,
			ArticleNumber: &num,
			MarkerText:    m.text,
			Chapter:       extractChapter(body),
			Start:         m.start,
		})
	}

	return spans
}

// findMarkers scans for candidate boundaries and resolves each with the
// prioritized pattern list; the first pattern matching at the boundary wins.
func (s *Segmenter) findMarkers(text string) []marker {
	var markers []marker
	lastEnd := -1

	for _, loc := range markerLocator.FindAllStringIndex(text, -1) {
		if loc[0] < lastEnd {
			continue // inside the previous marker
		}
		rest := text[loc[0]:]
		for _, p := range markerPatterns {
			m := p.re.FindStringSubmatchIndex(rest)
			if m == nil {
				continue
			}
			num, ok := parseMarkerNumber(rest[m[2]:m[3]])
			if !ok {
				break
			}
			markers = append(markers, marker{
				number: num,
				text:   strings.TrimSpace(rest[:m[1]]),
				start:  loc[0],
				end:    loc[0] + m[1],
			})
			lastEnd = loc[0] + m[1]
			break
		}
	}

	return markers
}

// parseMarkerNumber folds Arabic-Indic digits to Western and parses the value.
func parseMarkerNumber(s string) (int, bool) {
	folded := strings.Map(foldDigit, s)
	n, err := strconv.Atoi(folded)
	if err != nil {
		return 0, false
	}
	return n, true
}

func extractChapter(text string) string {
	head := text
	if len(head) > 500 {
		head = head[:500]
	}
	return chapterPattern.FindString(head)
}
