package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/trendscout/internal/sources"
	"github.com/IshaanNene/trendscout/internal/types"
)

// lazySrcAttrs are checked after src, in order.
var lazySrcAttrs = []string{"data-src", "data-lazy-src", "data-original"}

// ExtractCards scans a rendered listing for product cards. Only the
// listing-level fields are set on the returned candidates; cards without a
// resolvable detail URL are dropped.
func ExtractCards(html, baseURL string, sel sources.Selectors) ([]types.RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	var cards []types.RawCandidate
	doc.Find(sel.Container).Each(func(_ int, card *goquery.Selection) {
		link := detailLink(card, base, sel.Link)
		if link == "" {
			return
		}

		c := types.RawCandidate{
			DetailURL: link,
			Name:      cardName(card, sel.Name),
			Price:     cardPrice(card, sel.Price),
			ImageURL:  cardImage(card, base, sel.Image),
		}
		if sel.Label != "" {
			c.TrendLabel = collapseSpace(card.Find(sel.Label).First().Text())
			if c.TrendLabel == "" {
				c.TrendLabel, _ = card.Find(sel.Label).First().Attr("data-trend-label")
			}
		}
		if sel.Growth != "" {
			if g, ok := cardGrowth(card.Find(sel.Growth).First()); ok {
				c.TrendGrowthPercent = &g
			}
		}
		cards = append(cards, c)
	})

	return cards, nil
}

// detailLink returns the first qualifying anchor. The card itself counts
// when it is an anchor.
func detailLink(card *goquery.Selection, base *url.URL, linkSel string) string {
	if goquery.NodeName(card) == "a" {
		if href, ok := card.Attr("href"); ok {
			if u := resolveHref(base, href); u != "" {
				return u
			}
		}
	}

	for _, s := range []string{linkSel, "a[href]"} {
		if s == "" {
			continue
		}
		var found string
		card.Find(s).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			found = resolveHref(base, href)
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func cardName(card *goquery.Selection, nameSel string) string {
	if nameSel != "" {
		var name string
		card.Find(nameSel).EachWithBreak(func(_ int, n *goquery.Selection) bool {
			name = collapseSpace(n.Text())
			return name == ""
		})
		if name != "" {
			return name
		}
	}

	var alt string
	card.Find("img[alt]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		a, _ := img.Attr("alt")
		alt = collapseSpace(a)
		return alt == ""
	})
	return alt
}

// cardPrice reads the dedicated price node, falling back to a scan of the
// whole card text.
func cardPrice(card *goquery.Selection, priceSel string) float64 {
	if priceSel != "" {
		if v, ok := ParsePrice(card.Find(priceSel).First().Text()); ok {
			return v
		}
	}
	if v, ok := scanPrice(card.Text()); ok {
		return v
	}
	return 0
}

// cardImage checks src, then the lazy-load data attributes, then srcset.
func cardImage(card *goquery.Selection, base *url.URL, imageSel string) string {
	imgs := card.Find(imageSel)
	if imgs.Length() == 0 && imageSel != "img" {
		imgs = card.Find("img")
	}

	var out string
	imgs.EachWithBreak(func(_ int, img *goquery.Selection) bool {
		out = imageURL(img, base)
		return out == ""
	})
	return out
}

func imageURL(img *goquery.Selection, base *url.URL) string {
	if src, ok := img.Attr("src"); ok {
		if u := resolveAsset(base, src); u != "" {
			return u
		}
	}
	for _, attr := range lazySrcAttrs {
		if v, ok := img.Attr(attr); ok {
			if u := resolveAsset(base, v); u != "" {
				return u
			}
		}
	}
	for _, attr := range []string{"srcset", "data-srcset"} {
		if v, ok := img.Attr(attr); ok {
			if u := resolveAsset(base, firstSrcsetEntry(v)); u != "" {
				return u
			}
		}
	}
	return ""
}

func firstSrcsetEntry(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func cardGrowth(s *goquery.Selection) (float64, bool) {
	if s.Length() == 0 {
		return 0, false
	}
	if v, ok := s.Attr("data-growth"); ok {
		if g, ok := ParseGrowth(v); ok {
			return g, true
		}
	}
	return ParseGrowth(s.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
