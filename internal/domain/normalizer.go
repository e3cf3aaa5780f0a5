package domain

import (
	"strings"
)

// NormalizeMode selects how aggressively Arabic text is canonicalized.
type NormalizeMode int

const (
	// NormalizeSearch folds variant glyphs and digits for matching.
	NormalizeSearch NormalizeMode = iota
	// NormalizeDisplay keeps the text readable and only fixes whitespace
	// and digit families for consistent citation rendering.
	NormalizeDisplay
)

const tatweel = 'ـ'

// Normalizer canonicalizes Arabic legal text. The zero value is ready to use.
type Normalizer struct{}

// NewNormalizer creates a new instance of the default Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize canonicalizes text according to mode. It is idempotent and never
// fails: empty or non-Arabic input comes back unchanged apart from whitespace.
func (n *Normalizer) Normalize(text string, mode NormalizeMode) string {
	if text == "" {
		return ""
	}

	switch mode {
	case NormalizeSearch:
		text = strings.Map(foldForSearch, text)
	default:
		text = strings.Map(foldForDisplay, text)
	}

	return collapseWhitespace(text)
}

// foldForSearch strips diacritics and tatweel, unifies alef/teh-marbuta/yaa
// variants and converts Arabic-Indic digits to Western digits. Dropping a rune
// is signalled by returning -1, per strings.Map.
func foldForSearch(r rune) rune {
	switch {
	case r >= 'ً' && r <= 'ٟ': // tashkeel
		return -1
	case r == 'ٰ': // superscript alef
		return -1
	case r == tatweel:
		return -1
	}

	switch r {
	case 'أ', 'إ', 'آ', 'ٱ':
		return 'ا'
	case 'ة':
		return 'ه'
	case 'ى':
		return 'ي'
	}

	return foldDigit(r)
}

// foldForDisplay only unifies digit families so citations render consistently.
func foldForDisplay(r rune) rune {
	return foldDigit(r)
}

// foldDigit maps Arabic-Indic digits (U+0660..U+0669) to Western digits.
func foldDigit(r rune) rune {
	if r >= '٠' && r <= '٩' {
		return '0' + (r - '٠')
	}
	return r
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ToArabicDigits converts Western digits to Arabic-Indic digits. Used when
// rendering article and page numbers in citations.
func ToArabicDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return '٠' + (r - '0')
		}
		return r
	}, s)
}
