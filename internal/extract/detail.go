package extract

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"

	"github.com/IshaanNene/trendscout/internal/types"
)

// Detail holds what a product detail page adds to a listing card.
type Detail struct {
	Name      string
	Price     float64
	ImageURL  string
	Technical types.Technical
}

// Apply fills the candidate fields the listing left empty.
func (d Detail) Apply(c *types.RawCandidate) {
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Price == 0 {
		c.Price = d.Price
	}
	if c.ImageURL == "" {
		c.ImageURL = d.ImageURL
	}
	c.Technical.Fill(d.Technical)
}

const lowerCase = `translate(normalize-space(.),'ABCDEFGHIJKLMNOPQRSTUVWXYZ','abcdefghijklmnopqrstuvwxyz')`

// Label words per technical field, lowercase.
var fieldLabels = []struct {
	set    func(*types.Technical, string)
	labels []string
}{
	{func(t *types.Technical, v string) { t.Composition = v }, []string{"composition", "matière", "matiere", "material", "fabric"}},
	{func(t *types.Technical, v string) { t.CareInstructions = v }, []string{"entretien", "care", "washing"}},
	{func(t *types.Technical, v string) { t.Color = v }, []string{"couleur", "colour", "color"}},
	{func(t *types.Technical, v string) { t.CountryOfOrigin = v }, []string{"origine", "pays de fabrication", "country of origin", "made in"}},
	{func(t *types.Technical, v string) { t.ArticleNumber = v }, []string{"référence", "reference", "réf", "ref", "article", "sku", "item number"}},
}

var sizeXPaths = []string{
	`//ul[contains(@class,'size')]/li`,
	`//select[contains(@name,'size') or contains(@id,'size')]/option[@value!='']`,
	`//*[@data-size]`,
}

// ParseDetail reads a product detail page. JSON-LD product data wins over
// values scraped from labelled markup.
func ParseDetail(page string) (Detail, error) {
	doc, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return Detail{}, fmt.Errorf("parse detail html: %w", err)
	}

	var d Detail
	for _, n := range queryAll(doc, `//script[@type='application/ld+json']`) {
		if p, ok := findJSONLDProduct(htmlquery.InnerText(n)); ok {
			applyJSONLD(&d, p)
			break
		}
	}

	var scraped types.Technical
	for _, f := range fieldLabels {
		if v := labelledValue(doc, f.labels); v != "" {
			f.set(&scraped, v)
		}
	}
	scraped.Sizes = sizes(doc)
	d.Technical.Fill(scraped)

	if d.Price == 0 {
		d.Price = markupPrice(doc)
	}
	if d.ImageURL == "" {
		if n := first(doc, `//meta[@property='og:image']`); n != nil {
			d.ImageURL = strings.TrimSpace(htmlquery.SelectAttr(n, "content"))
		}
	}
	if d.Name == "" {
		if n := first(doc, `//h1`); n != nil {
			d.Name = collapseSpace(htmlquery.InnerText(n))
		}
	}
	return d, nil
}

// findJSONLDProduct returns the Product object of a JSON-LD block, looking
// inside top-level arrays and @graph. Keys starting with '@' are read
// through Map since gjson paths treat a leading '@' as a modifier.
func findJSONLDProduct(raw string) (gjson.Result, bool) {
	raw = strings.TrimSpace(raw)
	if !gjson.Valid(raw) {
		return gjson.Result{}, false
	}
	root := gjson.Parse(raw)

	var nodes []gjson.Result
	switch {
	case root.IsArray():
		nodes = root.Array()
	case root.Map()["@graph"].IsArray():
		nodes = root.Map()["@graph"].Array()
	default:
		nodes = []gjson.Result{root}
	}
	for _, n := range nodes {
		if isProductType(n.Map()["@type"]) {
			return n, true
		}
	}
	return gjson.Result{}, false
}

func isProductType(t gjson.Result) bool {
	if t.IsArray() {
		for _, v := range t.Array() {
			if v.String() == "Product" {
				return true
			}
		}
		return false
	}
	return t.String() == "Product"
}

func applyJSONLD(d *Detail, p gjson.Result) {
	d.Name = collapseSpace(p.Get("name").String())

	for _, path := range []string{"offers.price", "offers.0.price", "offers.lowPrice", "offers.0.lowPrice"} {
		v := p.Get(path)
		if !v.Exists() {
			continue
		}
		if v.Type == gjson.Number && v.Float() > 0 {
			d.Price = v.Float()
			break
		}
		if price, ok := ParsePrice(v.String()); ok {
			d.Price = price
			break
		}
	}

	for _, path := range []string{"image.0", "image.url", "image"} {
		if v := p.Get(path); v.Type == gjson.String && v.Str != "" {
			d.ImageURL = v.Str
			break
		}
	}

	d.Technical.Color = p.Get("color").String()
	d.Technical.Composition = joined(p.Get("material"))
	d.Technical.ArticleNumber = firstString(p, "sku", "mpn", "productID")
	d.Technical.CountryOfOrigin = firstString(p, "countryOfOrigin.name", "countryOfOrigin")
	if sz := p.Get("size"); sz.Exists() {
		for _, s := range sz.Array() {
			if v := strings.TrimSpace(s.String()); v != "" {
				d.Technical.Sizes = append(d.Technical.Sizes, v)
			}
		}
	}
}

func firstString(p gjson.Result, paths ...string) string {
	for _, path := range paths {
		if v := p.Get(path); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return strings.TrimSpace(v.Str)
		}
	}
	return ""
}

func joined(v gjson.Result) string {
	if !v.Exists() {
		return ""
	}
	if !v.IsArray() {
		return strings.TrimSpace(v.String())
	}
	var parts []string
	for _, e := range v.Array() {
		if s := strings.TrimSpace(e.String()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// labelledValue finds a value by its label in dt/dd pairs, th/td rows or
// inline "Label: value" list items.
func labelledValue(doc *html.Node, labels []string) string {
	for _, label := range labels {
		for _, xp := range []string{
			fmt.Sprintf(`//dt[starts-with(%s,'%s')]/following-sibling::dd[1]`, lowerCase, label),
			fmt.Sprintf(`//th[starts-with(%s,'%s')]/following-sibling::td[1]`, lowerCase, label),
		} {
			if n := first(doc, xp); n != nil {
				if v := collapseSpace(htmlquery.InnerText(n)); v != "" {
					return v
				}
			}
		}
	}

	for _, n := range queryAll(doc, `//li | //p`) {
		text := collapseSpace(htmlquery.InnerText(n))
		head, value, ok := strings.Cut(text, ":")
		if !ok {
			continue
		}
		head = strings.ToLower(strings.TrimSpace(head))
		for _, label := range labels {
			if head == label {
				if v := strings.TrimSpace(value); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func sizes(doc *html.Node) []string {
	seen := make(map[string]bool)
	var out []string
	for _, xp := range sizeXPaths {
		for _, n := range queryAll(doc, xp) {
			v := htmlquery.SelectAttr(n, "data-size")
			if v == "" {
				v = htmlquery.InnerText(n)
			}
			v = collapseSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func markupPrice(doc *html.Node) float64 {
	for _, n := range queryAll(doc, `//*[@itemprop='price']`) {
		if v, ok := ParsePrice(htmlquery.SelectAttr(n, "content")); ok {
			return v
		}
		if v, ok := ParsePrice(htmlquery.InnerText(n)); ok {
			return v
		}
	}
	for _, n := range queryAll(doc, `//*[contains(@class,'price')]`) {
		if v, ok := scanPrice(htmlquery.InnerText(n)); ok {
			return v
		}
	}
	return 0
}

func queryAll(doc *html.Node, xp string) []*html.Node {
	nodes, err := htmlquery.QueryAll(doc, xp)
	if err != nil {
		return nil
	}
	return nodes
}

func first(doc *html.Node, xp string) *html.Node {
	n, err := htmlquery.Query(doc, xp)
	if err != nil {
		return nil
	}
	return n
}
