// Package normalize canonicalizes raw Persian queries so that variants a
// human would read as the same question map to the same canonical text and
// therefore the same cache fingerprint. Everything here is pure: no I/O, no
// clock, no configuration.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/hunterwarburton/porsa/internal/core"
)

// Arabic letter forms folded to their Persian equivalents.
var letterFolds = map[rune]rune{
	'ي': 'ی', // ي -> ی
	'ى': 'ی', // ى -> ی
	'ك': 'ک', // ك -> ک
	'ة': 'ه', // ة -> ه
	'أ': 'ا', // أ -> ا
	'إ': 'ا', // إ -> ا
	'ٱ': 'ا', // ٱ -> ا
}

// Query canonicalizes raw text and derives its fingerprint.
func Query(raw string) core.NormalizedQuery {
	canonical := Canonicalize(raw)
	return core.NormalizedQuery{
		CanonicalText: canonical,
		Fingerprint:   Fingerprint(canonical),
	}
}

// Canonicalize applies the normalization rules: NFKC folding, Arabic to
// Persian letter folds, eastern digit forms to ASCII, removal of tashkeel,
// tatweel and zero-width joiners, punctuation to spaces, whitespace
// collapsing, and Latin lowercasing.
func Canonicalize(raw string) string {
	folded := norm.NFKC.String(raw)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case r == '‌' || r == '‍' || r == 'ـ':
			// ZWNJ, ZWJ and tatweel carry no meaning for matching.
			continue
		case r >= 'ً' && r <= 'ْ':
			// Tashkeel diacritics.
			continue
		}

		if mapped, ok := letterFolds[r]; ok {
			r = mapped
		}
		switch {
		case r >= '٠' && r <= '٩':
			r = '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			r = '0' + (r - '۰')
		}

		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		// Punctuation, symbols and whitespace all collapse into a single
		// separator.
		pendingSpace = true
	}

	return b.String()
}

// Fingerprint returns the lowercase hex SHA-256 of the canonical text. Stable
// across process restarts for identical input.
func Fingerprint(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// FoldDigits maps eastern Arabic and Persian digit forms to ASCII, leaving
// everything else untouched. For callers that need readable text with
// parseable numbers rather than full canonicalization.
func FoldDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}
		return r
	}, s)
}
