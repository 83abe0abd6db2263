// Package automation holds the page interactions listing pages need before
// their cards can be read: scrolling lazy-loaded grids and dismissing
// consent banners.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ConsentSelectors are cookie-banner accept buttons seen on retail sites,
// tried in order.
var ConsentSelectors = []string{
	"#onetrust-accept-btn-handler",
	"button#didomi-notice-agree-button",
	"button[data-testid='uc-accept-all-button']",
	"button[id*='accept-all']",
	"button.cookie-consent__accept",
	"[data-qa='cookie-accept']",
}

// BrowserAutomation handles page interactions on a rod page.
type BrowserAutomation struct {
	page   *rod.Page
	logger *slog.Logger
}

// NewBrowserAutomation wraps a Rod page with automation helpers.
func NewBrowserAutomation(page *rod.Page, logger *slog.Logger) *BrowserAutomation {
	return &BrowserAutomation{
		page:   page,
		logger: logger.With("component", "browser_automation"),
	}
}

// --- Scrolling ---

// ScrollHeight returns the document's full scroll height in pixels.
func (ba *BrowserAutomation) ScrollHeight(ctx context.Context) (int, error) {
	res, err := ba.page.Context(ctx).Eval(`() => Math.max(document.body ? document.body.scrollHeight : 0, document.documentElement.scrollHeight)`)
	if err != nil {
		return 0, fmt.Errorf("eval scroll height: %w", err)
	}
	return res.Value.Int(), nil
}

// ScrollTo scrolls the window to vertical offset y.
func (ba *BrowserAutomation) ScrollTo(ctx context.Context, y int) error {
	_, err := ba.page.Context(ctx).Eval(`(y) => window.scrollTo(0, y)`, y)
	return err
}

// --- Consent ---

// DismissConsent clicks the first visible consent button it finds and
// reports whether one was clicked. Missing banners are not an error.
func (ba *BrowserAutomation) DismissConsent(ctx context.Context, settle time.Duration) bool {
	page := ba.page.Context(ctx)
	for _, sel := range ConsentSelectors {
		has, el, err := page.Has(sel)
		if err != nil || !has {
			continue
		}
		if visible, _ := el.Visible(); !visible {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			ba.logger.Debug("consent click failed", "selector", sel, "error", err)
			continue
		}
		ba.logger.Debug("consent banner dismissed", "selector", sel)
		if settle > 0 {
			_ = page.WaitStable(settle)
		}
		return true
	}
	return false
}

// --- Waiting ---

// WaitSettled waits for the DOM to stop changing for d, bounded by timeout.
// A timeout is logged and swallowed.
func (ba *BrowserAutomation) WaitSettled(ctx context.Context, d, timeout time.Duration) {
	if err := ba.page.Context(ctx).Timeout(timeout).WaitStable(d); err != nil {
		ba.logger.Debug("page stability timeout, continuing", "error", err)
	}
}
