package normalize

import (
	"sort"
	"strings"
)

// knownBrand maps a lowercase match string to the brand's display form.
type knownBrand struct {
	match   string
	display string
}

var brandTable = []knownBrand{
	{"adidas originals", "Adidas Originals"},
	{"adidas", "Adidas"},
	{"american vintage", "American Vintage"},
	{"armani exchange", "Armani Exchange"},
	{"emporio armani", "Emporio Armani"},
	{"billabong", "Billabong"},
	{"calvin klein jeans", "Calvin Klein Jeans"},
	{"calvin klein", "Calvin Klein"},
	{"carhartt wip", "Carhartt WIP"},
	{"carhartt", "Carhartt"},
	{"champion", "Champion"},
	{"columbia", "Columbia"},
	{"dickies", "Dickies"},
	{"diesel", "Diesel"},
	{"ellesse", "Ellesse"},
	{"fila", "Fila"},
	{"fred perry", "Fred Perry"},
	{"g-star raw", "G-Star RAW"},
	{"g-star", "G-Star RAW"},
	{"guess", "Guess"},
	{"hugo boss", "Hugo Boss"},
	{"boss", "Boss"},
	{"ikks", "IKKS"},
	{"jack & jones", "Jack & Jones"},
	{"jack and jones", "Jack & Jones"},
	{"jacquemus", "Jacquemus"},
	{"jott", "JOTT"},
	{"kaporal", "Kaporal"},
	{"kappa", "Kappa"},
	{"karl lagerfeld", "Karl Lagerfeld"},
	{"kenzo", "Kenzo"},
	{"lacoste", "Lacoste"},
	{"le coq sportif", "Le Coq Sportif"},
	{"le temps des cerises", "Le Temps des Cerises"},
	{"lee cooper", "Lee Cooper"},
	{"lee", "Lee"},
	{"levi's", "Levi's"},
	{"levis", "Levi's"},
	{"maje", "Maje"},
	{"napapijri", "Napapijri"},
	{"new balance", "New Balance"},
	{"nike", "Nike"},
	{"obey", "Obey"},
	{"only & sons", "Only & Sons"},
	{"patagonia", "Patagonia"},
	{"pepe jeans", "Pepe Jeans"},
	{"petit bateau", "Petit Bateau"},
	{"polo ralph lauren", "Polo Ralph Lauren"},
	{"ralph lauren", "Ralph Lauren"},
	{"puma", "Puma"},
	{"quiksilver", "Quiksilver"},
	{"sandro", "Sandro"},
	{"schott", "Schott"},
	{"sergio tacchini", "Sergio Tacchini"},
	{"sézane", "Sézane"},
	{"sezane", "Sézane"},
	{"stone island", "Stone Island"},
	{"stüssy", "Stüssy"},
	{"stussy", "Stüssy"},
	{"superdry", "Superdry"},
	{"the kooples", "The Kooples"},
	{"the north face", "The North Face"},
	{"tommy hilfiger", "Tommy Hilfiger"},
	{"tommy jeans", "Tommy Jeans"},
	{"vero moda", "Vero Moda"},
	{"volcom", "Volcom"},
	{"wrangler", "Wrangler"},
	{"zadig & voltaire", "Zadig & Voltaire"},
	{"zadig et voltaire", "Zadig & Voltaire"},
}

// retailerLabels are house labels retailers prefix to titles.
var retailerLabels = map[string]struct{}{
	"zara": {}, "h&m": {}, "h & m": {}, "asos": {}, "asos design": {}, "mango": {},
	"bershka": {}, "pull&bear": {}, "pull & bear": {}, "stradivarius": {}, "uniqlo": {},
	"primark": {}, "kiabi": {}, "celio": {}, "jules": {}, "shein": {}, "boohoo": {},
	"zalando": {}, "zalando essentials": {}, "galeries lafayette": {}, "la redoute": {},
	"la redoute collections": {}, "bonobo": {}, "cyrillus": {}, "monoprix": {}, "okaidi": {},
	"vertbaudet": {}, "c&a": {}, "gap": {}, "old navy": {}, "urban outfitters": {},
	"bdg": {}, "topshop": {}, "new look": {}, "weekday": {}, "cos": {}, "muji": {},
}

// genericWords are tokens that never stand for a brand on their own.
// Stored folded so "T-shirt" and "t shirt" compare equal.
var genericWords = map[string]struct{}{
	"t shirt": {}, "tshirt": {}, "tee": {}, "tee shirt": {}, "pull": {}, "pullover": {},
	"sweat": {}, "sweatshirt": {}, "hoodie": {}, "chemise": {}, "shirt": {}, "blouse": {},
	"veste": {}, "jacket": {}, "blouson": {}, "manteau": {}, "coat": {}, "parka": {},
	"doudoune": {}, "jean": {}, "jeans": {}, "pantalon": {}, "pants": {}, "trousers": {},
	"chino": {}, "short": {}, "shorts": {}, "bermuda": {}, "robe": {}, "dress": {},
	"jupe": {}, "skirt": {}, "top": {}, "debardeur": {}, "polo": {}, "gilet": {},
	"cardigan": {}, "legging": {}, "jogging": {}, "survetement": {}, "combinaison": {},
	"salopette": {}, "body": {}, "maillot": {}, "sweater": {}, "jumper": {}, "overshirt": {},
	"surchemise": {}, "trench": {}, "bomber": {}, "cargo": {}, "crop": {}, "blazer": {},
	"kimono": {}, "tunique": {}, "bodysuit": {}, "hoody": {}, "anorak": {}, "coupe": {},
	"haut": {}, "mini": {}, "midi": {}, "maxi": {}, "long": {}, "longue": {}, "court": {},
	"courte": {}, "large": {}, "wide": {}, "grand": {}, "petit": {}, "petite": {},
	"oversize": {}, "oversized": {}, "slim": {}, "regular": {}, "relaxed": {}, "straight": {},
	"classique": {}, "classic": {}, "basique": {}, "basic": {}, "essential": {}, "nouveau": {},
	"nouvelle": {}, "new": {}, "lot": {}, "pack": {}, "homme": {}, "femme": {}, "enfant": {},
	"fille": {}, "garcon": {}, "men": {}, "women": {}, "kids": {}, "the": {}, "le": {}, "la": {},
	"les": {}, "un": {}, "une": {},
}

func init() {
	sort.SliceStable(brandTable, func(i, j int) bool {
		return len(brandTable[i].match) > len(brandTable[j].match)
	})
}

// KnownBrands returns the display form of every dictionary brand.
func KnownBrands() []string {
	seen := make(map[string]struct{}, len(brandTable))
	out := make([]string, 0, len(brandTable))
	for _, b := range brandTable {
		if _, ok := seen[b.display]; ok {
			continue
		}
		seen[b.display] = struct{}{}
		out = append(out, b.display)
	}
	sort.Strings(out)
	return out
}

// matchKnownBrand returns the longest dictionary brand s starts with and
// the number of bytes of s it covers.
func matchKnownBrand(s string) (string, int, bool) {
	lower := strings.ToLower(s)
	for _, b := range brandTable {
		if strings.HasPrefix(lower, b.match) {
			return b.display, prefixLen(s, len(b.match)), true
		}
	}
	return "", 0, false
}

// prefixLen converts a byte length of the lowercase form back to a byte
// length of s. They differ only when lowercasing changes rune widths.
func prefixLen(s string, lowerLen int) int {
	n := 0
	for i, r := range s {
		if n >= lowerLen {
			return i
		}
		n += len(strings.ToLower(string(r)))
	}
	return len(s)
}

func isRetailerLabel(s string) bool {
	_, ok := retailerLabels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
