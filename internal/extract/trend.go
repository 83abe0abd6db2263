package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/IshaanNene/trendscout/internal/types"
)

// TrendSignal is the trend data a trend-spotter page embeds for one product.
type TrendSignal struct {
	Growth      *float64
	Label       string
	VisualScore *float64
}

// Paths inside embedded page state that hold trend lists.
var trendListPaths = []string{
	"props.pageProps.trends",
	"props.pageProps.products",
	"props.pageProps.initialState.trends.items",
	"trends",
	"items",
}

// ParseTrendSignals reads embedded trend state (script#__NEXT_DATA__ or a
// window.__TRENDS__ assignment) and returns signals keyed by canonical
// detail URL.
func ParseTrendSignals(page, baseURL string) map[string]TrendSignal {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	signals := make(map[string]TrendSignal)
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		var state string
		if id, _ := s.Attr("id"); id == "__NEXT_DATA__" {
			state = strings.TrimSpace(s.Text())
		} else if i := strings.Index(s.Text(), "window.__TRENDS__"); i >= 0 {
			rest := s.Text()[i+len("window.__TRENDS__"):]
			if eq := strings.IndexByte(rest, '='); eq >= 0 {
				state = balancedJSON(rest[eq+1:])
			}
		}
		if state == "" || !gjson.Valid(state) {
			return
		}
		collectSignals(gjson.Parse(state), base, signals)
	})
	return signals
}

func collectSignals(root gjson.Result, base *url.URL, into map[string]TrendSignal) {
	lists := []gjson.Result{}
	if root.IsArray() {
		lists = append(lists, root)
	}
	for _, path := range trendListPaths {
		if v := root.Get(path); v.IsArray() {
			lists = append(lists, v)
		}
	}

	for _, list := range lists {
		for _, e := range list.Array() {
			link := resolveHref(base, firstString(e, "url", "href", "link"))
			if link == "" {
				continue
			}
			if _, dup := into[link]; dup {
				continue
			}
			sig := TrendSignal{Label: firstString(e, "label", "badge", "trend.label")}
			if g, ok := numberOrPercent(e, "growth", "growthPercent", "trend.growth"); ok {
				sig.Growth = &g
			}
			if v, ok := numberOrPercent(e, "visualScore", "scores.visual"); ok {
				sig.VisualScore = &v
			}
			into[link] = sig
		}
	}
}

func numberOrPercent(e gjson.Result, paths ...string) (float64, bool) {
	for _, path := range paths {
		v := e.Get(path)
		switch v.Type {
		case gjson.Number:
			return v.Float(), true
		case gjson.String:
			if g, ok := ParseGrowth(v.Str); ok {
				return g, true
			}
		}
	}
	return 0, false
}

// ApplyTrendSignals fills missing trend fields from signals.
func ApplyTrendSignals(items []types.RawCandidate, signals map[string]TrendSignal) {
	if len(signals) == 0 {
		return
	}
	for i := range items {
		sig, ok := signals[CanonicalizeURL(items[i].DetailURL)]
		if !ok {
			continue
		}
		if items[i].TrendGrowthPercent == nil {
			items[i].TrendGrowthPercent = sig.Growth
		}
		if items[i].TrendLabel == "" {
			items[i].TrendLabel = sig.Label
		}
		if items[i].VisualScore == nil {
			items[i].VisualScore = sig.VisualScore
		}
	}
}

// balancedJSON returns the leading JSON object or array of s, ignoring
// whatever script code follows it.
func balancedJSON(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
