// Package exclusion decides whether a product name falls outside the
// clothing scope the pipeline tracks.
package exclusion

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Keywords match at the start of a word of the folded name. A keyword
// ending in a space must match a whole word ("bag " keeps "baggy").
var categories = []struct {
	name     string
	keywords []string
}{
	{"footwear", []string{
		"chaussure", "basket ", "baskets ", "sneaker", "boot ", "boots ", "bottes ", "bottine",
		"sandale", "sandal", "escarpin", "mocassin", "loafer", "shoe", "espadrille", "tong ",
		"tongs ", "flip flop", "claquette", "slipper", "chausson", "mule ", "mules ", "derby ",
		"derbies ", "trainers ", "ballerine",
	}},
	{"underwear", []string{
		"calecon", "boxer ", "boxers ", "slip ", "slips ", "culotte", "string ", "strings ",
		"soutien gorge", "bra ", "bralette", "lingerie", "underwear", "brief ", "briefs ",
		"chaussette", "socks ", "sock ", "collant", "tights ", "shapewear",
	}},
	{"bags", []string{
		"sac ", "sacs ", "sacoche", "handbag", "backpack", "tote ", "pochette", "clutch ",
		"bag ", "bags ", "cartable", "valise", "luggage", "wallet", "portefeuille", "porte monnaie",
		"banane ",
	}},
	{"perfume", []string{
		"parfum", "perfume", "eau de toilette", "eau de parfum", "fragrance", "cologne",
	}},
	{"jewelry", []string{
		"bijou", "jewel", "collier", "necklace", "bracelet", "bague", "ring ", "rings ",
		"boucle d oreille", "boucles d oreilles", "earring", "pendentif", "pendant ", "montre ",
		"watch ", "watches ", "broche",
	}},
	{"cosmetics", []string{
		"maquillage", "makeup", "make up", "rouge a levres", "lipstick", "mascara", "vernis",
		"nail polish", "creme hydratante", "face cream", "body lotion", "serum ", "fond de teint",
		"cosmetic", "lip gloss", "eyeliner",
	}},
	{"accessories", []string{
		"ceinture", "belt ", "belts ", "casquette", "cap ", "caps ", "bonnet", "beanie",
		"chapeau", "hat ", "hats ", "echarpe", "scarf", "foulard", "gant ", "gants ", "gloves",
		"lunettes", "sunglasses", "cravate", "tie ", "noeud papillon", "porte cle", "keyring",
		"phone case", "coque ", "parapluie", "umbrella", "bandana", "chouchou", "scrunchie",
	}},
}

// IsExcluded reports whether name belongs to an excluded product category
// or contains one of the extra keywords. Matching ignores case and accents.
func IsExcluded(name string, extra []string) bool {
	_, ok := Category(name, extra)
	return ok
}

// Category returns the excluded category name matches, "extra" for a
// source-specific keyword, or false when name is in scope.
func Category(name string, extra []string) (string, bool) {
	padded := " " + Fold(name) + " "
	if strings.TrimSpace(padded) == "" {
		return "", false
	}
	for _, cat := range categories {
		for _, kw := range cat.keywords {
			if strings.Contains(padded, " "+kw) {
				return cat.name, true
			}
		}
	}
	for _, kw := range extra {
		kw = Fold(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(padded, " "+kw) {
			return "extra", true
		}
	}
	return "", false
}

// Fold lowercases s, strips diacritics and replaces every run of
// non-alphanumeric runes with a single space.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)

	var b strings.Builder
	b.Grow(len(out))
	space := true
	for _, r := range out {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
