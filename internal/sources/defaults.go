package sources

import (
	"time"

	"github.com/IshaanNene/trendscout/internal/types"
)

// Default returns the built-in scrape targets.
func Default() []Descriptor {
	zaraCards := Selectors{
		Container: "li.product-grid-product",
		Name:      ".product-grid-product-info__name, a.product-link h2",
		Price:     ".money-amount__main",
		Image:     "img.media-image__image",
		Link:      "a.product-link",
	}
	hmCards := Selectors{
		Container: "article[data-articlecode], li.product-item",
		Name:      "h2, .item-heading a",
		Price:     ".price, span[class*='price']",
		Image:     "img",
		Link:      "a[href*='productpage']",
	}
	zalandoCards := Selectors{
		Container: "article[role='link'], article.z5x6ht",
		Name:      "h3",
		Price:     "section p span",
		Image:     "img",
		Link:      "a[href$='.html']",
	}
	asosCards := Selectors{
		Container: "article[id^='product-']",
		Name:      "h2, p[class*='productDescription']",
		Price:     "span[data-testid='current-price'], p[class*='price']",
		Image:     "img",
		Link:      "a[href*='/prd/']",
	}
	trendCards := Selectors{
		Container: "div.trend-card, li[data-trend-id]",
		Name:      ".trend-card__title, h3",
		Price:     ".trend-card__price",
		Image:     "img",
		Link:      "a[href]",
		Label:     ".trend-card__badge, [data-trend-label]",
		Growth:    ".trend-card__growth, [data-growth]",
	}

	return []Descriptor{
		{
			ID: "zara-fr-women", RetailerBrand: "Zara", MarketZone: types.ZoneFR, Segment: types.SegmentWomen,
			BaseURL: "https://www.zara.com", Path: "/fr/fr/femme-nouveau-l1180.html",
			Selectors: zaraCards, ResultCap: 60, InitialWait: 4 * time.Second,
			PreScrollSteps: 6, ImageScrollSteps: 2, SettleDelay: 2 * time.Second,
			NavTimeout: 45 * time.Second, Strategy: ListingOnly,
		},
		{
			ID: "zara-fr-men", RetailerBrand: "Zara", MarketZone: types.ZoneFR, Segment: types.SegmentMen,
			BaseURL: "https://www.zara.com", Path: "/fr/fr/homme-nouveau-l711.html",
			Selectors: zaraCards, ResultCap: 60, InitialWait: 4 * time.Second,
			PreScrollSteps: 6, ImageScrollSteps: 2, SettleDelay: 2 * time.Second,
			NavTimeout: 45 * time.Second, Strategy: ListingOnly,
		},
		{
			ID: "hm-eu-women", RetailerBrand: "H&M", MarketZone: types.ZoneEU, Segment: types.SegmentWomen,
			BaseURL: "https://www2.hm.com", Path: "/fr_fr/femme/nouveautes/vetements.html",
			Selectors: hmCards, ResultCap: 48, InitialWait: 3 * time.Second,
			PreScrollSteps: 4, ImageScrollSteps: 1, SettleDelay: 2 * time.Second,
			Strategy: ListingPlusDetailEnrich, DetailTimeout: 20 * time.Second, DetailLimit: 24,
			ExtraExclusions: []string{"home", "maison"},
		},
		{
			ID: "hm-eu-boys", RetailerBrand: "H&M", MarketZone: types.ZoneEU, Segment: types.SegmentBoys,
			BaseURL: "https://www2.hm.com", Path: "/fr_fr/enfant/garcon/nouveautes.html",
			Selectors: hmCards, ResultCap: 36, InitialWait: 3 * time.Second,
			PreScrollSteps: 4, SettleDelay: 2 * time.Second, Strategy: ListingOnly,
		},
		{
			ID: "zalando-fr-men", RetailerBrand: "Zalando", MarketZone: types.ZoneFR, Segment: types.SegmentMen,
			BaseURL: "https://www.zalando.fr", Path: "/vetements-homme/?order=popularity",
			Selectors: zalandoCards, ResultCap: 60, InitialWait: 3 * time.Second,
			PreScrollSteps: 5, ImageScrollSteps: 2, SettleDelay: 3 * time.Second,
			Strategy: ListingPlusDetailEnrich, DetailTimeout: 25 * time.Second, DetailLimit: 20,
		},
		{
			ID: "asos-us-women", RetailerBrand: "ASOS", MarketZone: types.ZoneUS, Segment: types.SegmentWomen,
			BaseURL: "https://www.asos.com", Path: "/us/women/new-in/new-in-clothing/cat/?cid=2623",
			Selectors: asosCards, ResultCap: 72, InitialWait: 2 * time.Second,
			PreScrollSteps: 8, ImageScrollSteps: 2, SettleDelay: 2 * time.Second, Strategy: ListingOnly,
		},
		{
			ID: "asos-us-girls", RetailerBrand: "ASOS", MarketZone: types.ZoneUS, Segment: types.SegmentGirls,
			BaseURL: "https://www.asos.com", Path: "/us/women/petite/cat/?cid=4177",
			Selectors: asosCards, ResultCap: 36, PreScrollSteps: 4, Strategy: ListingOnly,
			Disabled: true,
		},
		{
			ID: "trendspotter-asia-women", RetailerBrand: "Trend Spotter", MarketZone: types.ZoneASIA,
			Segment: types.SegmentWomen, BaseURL: "https://trends.example-fashion.asia",
			Path: "/women/rising", Pages: []string{"/women/trending", "/women/new"},
			Selectors: trendCards, ResultCap: 80, InitialWait: 2 * time.Second,
			PreScrollSteps: 3, ImageScrollSteps: 1, SettleDelay: 2 * time.Second,
			Strategy: TrendSpotterMultiPage,
		},
	}
}
