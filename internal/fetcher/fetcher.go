// Package fetcher renders listing pages in a headless browser and loads
// product detail pages over HTTP.
package fetcher

import (
	"github.com/IshaanNene/trendscout/internal/extract"
)

var (
	_ extract.Renderer      = (*BrowserRenderer)(nil)
	_ extract.Page          = (*browserPage)(nil)
	_ extract.DetailFetcher = (*HTTPFetcher)(nil)
)
