package normalize

import (
	"strings"

	"github.com/IshaanNene/trendscout/internal/exclusion"
)

// CategoryOther is returned when no keyword matches.
const CategoryOther = "other"

// Table order matters: "t shirt" must win over "shirt", knitwear over
// "sweat" (sweater), swimwear over "short", and any garment over the
// fabric word "jean".
var categoryTable = []struct {
	category string
	keywords []string
}{
	{"t-shirts", []string{"t shirt", "tshirt", "tee ", "tees ", "tee shirt"}},
	{"knitwear", []string{"pull", "sweater", "cardigan", "gilet", "maille", "knit", "jumper"}},
	{"sweatshirts", []string{"sweat", "hoodie", "hoody", "capuche"}},
	{"tracksuits", []string{"survetement", "tracksuit", "jogging", "jogger", "track pant"}},
	{"swimwear", []string{"maillot de bain", "swim", "bikini", "boardshort"}},
	{"shirts", []string{"chemise", "shirt ", "shirts ", "blouse", "overshirt", "surchemise"}},
	{"coats", []string{"manteau", "coat", "trench", "parka", "caban", "peacoat"}},
	{"jackets", []string{"veste", "jacket", "blouson", "bomber", "doudoune", "blazer", "anorak", "puffer"}},
	{"shorts", []string{"short", "bermuda"}},
	{"dresses", []string{"robe", "dress"}},
	{"skirts", []string{"jupe", "skirt"}},
	{"jeans", []string{"jean", "denim"}},
	{"pants", []string{"pantalon", "pant ", "pants ", "trouser", "chino", "cargo", "legging"}},
	{"tops", []string{"top ", "tops ", "debardeur", "tank", "polo", "body ", "caraco", "bustier", "brassiere"}},
}

// InferCategory maps a cleaned title to a garment category using the
// first matching keyword, or CategoryOther.
func InferCategory(title string) string {
	padded := " " + exclusion.Fold(title) + " "
	for _, row := range categoryTable {
		for _, kw := range row.keywords {
			if strings.Contains(padded, " "+kw) {
				return row.category
			}
		}
	}
	return CategoryOther
}

// Categories lists every category InferCategory can return.
func Categories() []string {
	out := make([]string, 0, len(categoryTable)+1)
	for _, row := range categoryTable {
		out = append(out, row.category)
	}
	return append(out, CategoryOther)
}
