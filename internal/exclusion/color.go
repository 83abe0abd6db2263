package exclusion

import "strings"

var colorWords = []string{
	"noir", "noire", "blanc", "blanche", "bleu", "bleue", "rouge", "vert", "verte", "jaune",
	"rose", "gris", "grise", "beige", "marron", "violet", "violette", "orange", "kaki",
	"bordeaux", "marine", "ecru", "camel", "taupe", "anthracite", "turquoise", "lilas",
	"corail", "argent", "dore", "doree", "sable", "chocolat", "creme", "multicolore",
	"black", "white", "blue", "red", "green", "yellow", "pink", "grey", "gray", "brown",
	"purple", "navy", "khaki", "cream", "ivory", "multicolor", "silver", "gold", "olive",
	"burgundy", "charcoal", "stone", "sand", "tan", "coral", "mint", "lavender", "nude",
}

var compoundColors = []string{
	"bleu marine", "bleu ciel", "bleu clair", "bleu fonce", "gris chine", "gris clair",
	"gris fonce", "vert olive", "vert kaki", "rose pale", "blanc casse", "light blue",
	"dark blue", "navy blue", "off white", "light grey", "dark grey", "olive green",
	"sky blue", "heather grey",
}

var colorSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(colorWords)+len(compoundColors))
	for _, c := range colorWords {
		m[c] = struct{}{}
	}
	for _, c := range compoundColors {
		m[c] = struct{}{}
	}
	return m
}()

// IsColorOnlyTitle reports whether title names nothing but a color,
// e.g. a swatch label scraped in place of the product name.
func IsColorOnlyTitle(title string) bool {
	folded := Fold(title)
	if folded == "" {
		return false
	}
	_, ok := colorSet[folded]
	return ok
}

// IsColorWord reports whether s, once folded, is a single or compound color.
func IsColorWord(s string) bool {
	_, ok := colorSet[Fold(s)]
	return ok
}

// ColorWords returns a copy of the single-word color list.
func ColorWords() []string {
	out := make([]string, len(colorWords))
	copy(out, colorWords)
	return out
}

// HasColorSuffix reports whether the last separator-delimited segment of
// title is a color, returning the title without it.
func HasColorSuffix(title string) (string, bool) {
	for _, sep := range []string{" - ", " – ", " | ", " / ", ", "} {
		idx := strings.LastIndex(title, sep)
		if idx <= 0 {
			continue
		}
		if IsColorWord(title[idx+len(sep):]) {
			return strings.TrimSpace(title[:idx]), true
		}
	}
	return title, false
}
