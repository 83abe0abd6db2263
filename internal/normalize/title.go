package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/trendscout/internal/exclusion"
)

var (
	priceRe = regexp.MustCompile(`(?i)(?:[€$£]\s?\d+(?:[.,\x{00A0} ]\d{3})*(?:[.,]\d{1,2})?` +
		`|\d+(?:[.,\x{00A0}]\d{3})*(?:[.,]\d{1,2})?\s?(?:€|eur\b|euros?\b|\$|usd\b|£|gbp\b))`)

	promoRe = regexp.MustCompile(`(?i)(?:\bnouvelle collection\b|\bnew in\b|\bnew arrivals?\b` +
		`|\bexclusivit[ée] web\b|\bonline exclusive\b|\ben promo\b|\bpromo\b|\bsoldes\b` +
		`|\bbest ?seller\b|\blivraison gratuite\b|\bfree shipping\b|\bderniers articles\b` +
		`|\blast chance\b|\bjusqu'?[àa] ?-?\d{1,2} ?%|-\d{1,2} ?%|\bprix mini\b|\bbon plan\b)`)

	spaceRe = regexp.MustCompile(`\s+`)
)

const edgeCutset = " -–—|:,/·•"

// minTitleLen is the shortest cleaned title accepted before falling back
// to the raw title.
const minTitleLen = 3

// CleanTitle strips embedded prices, a fused brand prefix, promotional
// boilerplate and a trailing color suffix from rawTitle. It never returns
// fewer than three runes when the raw title had any.
func CleanTitle(rawTitle string, brand *string) string {
	original := collapse(rawTitle)
	title := original

	title = priceRe.ReplaceAllString(title, " ")
	title = promoRe.ReplaceAllString(title, " ")
	title = collapse(title)

	if segs := splitSegments(title); len(segs) >= 2 && isRetailerLabel(segs[0]) {
		title = strings.Join(segs[1:], " - ")
	}

	if brand != nil && *brand != "" {
		title = stripBrandPrefix(title, *brand)
	}

	if trimmed, ok := exclusion.HasColorSuffix(title); ok {
		title = trimmed
	}

	title = strings.Trim(collapse(title), edgeCutset)
	if utf8.RuneCountInString(title) < minTitleLen {
		return original
	}
	return title
}

// stripBrandPrefix removes brand, and any repeat of it, from the start of
// title. "DieselBLEESS - Jean" becomes "BLEESS - Jean".
func stripBrandPrefix(title, brand string) string {
	lowerBrand := strings.ToLower(brand)
	for {
		trimmed := strings.TrimLeft(title, edgeCutset)
		if !strings.HasPrefix(strings.ToLower(trimmed), lowerBrand) {
			// The dictionary may know the brand under another spelling.
			display, n, ok := matchKnownBrand(trimmed)
			if !ok || !strings.EqualFold(display, brand) {
				return trimmed
			}
			title = trimmed[n:]
			continue
		}
		rest := trimmed[prefixLen(trimmed, len(lowerBrand)):]
		if strings.TrimLeft(rest, edgeCutset) == "" {
			return trimmed
		}
		title = rest
	}
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
