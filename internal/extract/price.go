package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const amount = `\d{1,3}(?:[ .,\x{00a0}\x{202f}]?\d{3})*(?:[.,]\d{1,2})?`

var (
	currencyPriceRe = regexp.MustCompile(`(?i)(?:[€$£¥][\s\x{00a0}]?(` + amount + `))|(?:(` + amount + `)[\s\x{00a0}\x{202f}]?(?:€|eur\b|usd\b|gbp\b|\$|£|¥))`)
	barePriceRe     = regexp.MustCompile(`^` + amount + `$`)
	growthRe        = regexp.MustCompile(`([+\-−]?)\s?(\d+(?:[.,]\d+)?)\s?%`)
	bareGrowthRe    = regexp.MustCompile(`^([+\-−]?)\s?(\d+(?:[.,]\d+)?)$`)
)

// ParsePrice reads a price from text such as "€1.234,56", "1 299,00 €" or
// "$24.50". A bare number is accepted when it is the whole text.
func ParsePrice(text string) (float64, bool) {
	if v, ok := scanPrice(text); ok {
		return v, true
	}
	trimmed := strings.TrimSpace(text)
	if barePriceRe.MatchString(trimmed) {
		return parseAmount(trimmed)
	}
	return 0, false
}

// scanPrice finds the first currency-marked amount in free text.
func scanPrice(text string) (float64, bool) {
	m := currencyPriceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	return parseAmount(raw)
}

// parseAmount normalizes thousands and decimal separators. The last '.' or
// ',' is a decimal point only when one or two digits follow it.
func parseAmount(raw string) (float64, bool) {
	s := strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(raw)
	if s == "" {
		return 0, false
	}

	dec := strings.LastIndexAny(s, ".,")
	intPart, fracPart := s, ""
	if dec >= 0 && len(s)-dec-1 <= 2 {
		intPart, fracPart = s[:dec], s[dec+1:]
	}
	intPart = strings.NewReplacer(".", "", ",", "").Replace(intPart)

	num := intPart
	if fracPart != "" {
		num += "." + fracPart
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// ParseGrowth reads a growth percentage such as "+34%", "−12 %" or "8.5%".
// A bare signed number is accepted when it is the whole text.
func ParseGrowth(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	m := growthRe.FindStringSubmatch(text)
	if m == nil {
		m = bareGrowthRe.FindStringSubmatch(text)
	}
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m[2], ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	if m[1] == "-" || m[1] == "−" {
		v = -v
	}
	return v, true
}
