// Package normalize separates retailer titles into a clean brand and a
// clean product title, and infers a garment category from the title.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/IshaanNene/trendscout/internal/exclusion"
)

// Separators surrounded by spaces, or bare pipes and colons. A hyphen
// inside a word ("T-shirt") is not a separator.
var separatorRe = regexp.MustCompile(`\s+[-–—]\s+|\s*[|:]\s*`)

// ExtractBrand infers the product brand from a raw title. It returns nil
// when neither the title nor the retailer label yields one.
func ExtractBrand(rawTitle, retailerFallback string) *string {
	title := strings.TrimSpace(rawTitle)

	// House label first, real brand in the next segment.
	segments := splitSegments(title)
	if len(segments) >= 2 && isRetailerLabel(segments[0]) {
		rest := segments[1]
		if b, _, ok := matchKnownBrand(rest); ok {
			return &b
		}
		if first := firstWord(rest); isBrandLike(first) {
			b := sanitizeBrand(first)
			return &b
		}
	}

	if b, _, ok := matchKnownBrand(title); ok {
		return &b
	}

	if first := firstWord(title); isBrandLike(first) && !isRetailerLabel(first) {
		b := sanitizeBrand(first)
		if b != "" {
			return &b
		}
	}

	if b := sanitizeBrand(retailerFallback); b != "" {
		return &b
	}
	return nil
}

func splitSegments(title string) []string {
	parts := separatorRe.Split(title, -1)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// isBrandLike rejects tokens that are colors, garment words, numbers or
// outside 2..40 runes.
func isBrandLike(token string) bool {
	n := utf8.RuneCountInString(token)
	if n < 2 || n > 40 {
		return false
	}
	folded := exclusion.Fold(token)
	if folded == "" {
		return false
	}
	if exclusion.IsColorWord(folded) {
		return false
	}
	if _, ok := genericWords[folded]; ok {
		return false
	}
	letters := 0
	for _, r := range token {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 2
}

// sanitizeBrand trims, collapses whitespace and removes non-letter edges.
func sanitizeBrand(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
