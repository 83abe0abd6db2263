package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/trendscout/internal/automation"
	"github.com/IshaanNene/trendscout/internal/config"
	"github.com/IshaanNene/trendscout/internal/extract"
	"github.com/IshaanNene/trendscout/internal/sources"
)

// BrowserRenderer renders listing pages in a headless Chromium via Rod.
// Every Open gets its own incognito context so sources never share
// cookies or storage.
type BrowserRenderer struct {
	cfg      config.BrowserConfig
	throttle *Throttle
	logger   *slog.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewBrowserRenderer creates a renderer. The browser is started lazily on
// the first Open so commands that never render pay nothing.
func NewBrowserRenderer(cfg config.BrowserConfig, throttle *Throttle, logger *slog.Logger) *BrowserRenderer {
	return &BrowserRenderer{
		cfg:      cfg,
		throttle: throttle,
		logger:   logger.With("component", "browser_renderer"),
	}
}

// connect launches (or attaches to) the browser once.
func (br *BrowserRenderer) connect() (*rod.Browser, error) {
	br.mu.Lock()
	defer br.mu.Unlock()
	if br.browser != nil {
		return br.browser, nil
	}

	controlURL := br.cfg.ControlURL
	if controlURL == "" {
		l := br.newLauncher()
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		br.launcher = l
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	br.browser = browser

	br.logger.Info("browser ready",
		"headless", br.cfg.Headless,
		"stealth", br.cfg.Stealth,
		"attached", br.cfg.ControlURL != "",
	)
	return browser, nil
}

// newLauncher builds a Chromium launcher with appropriate flags.
func (br *BrowserRenderer) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(br.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if br.cfg.BinPath != "" {
		l = l.Bin(br.cfg.BinPath)
	}
	if br.cfg.UserDataDir != "" {
		l = l.UserDataDir(br.cfg.UserDataDir)
	}
	if br.cfg.WindowWidth > 0 && br.cfg.WindowHeight > 0 {
		l = l.Set("window-size", strconv.Itoa(br.cfg.WindowWidth)+","+strconv.Itoa(br.cfg.WindowHeight))
	}
	return l
}

// Open starts an isolated session for src.
func (br *BrowserRenderer) Open(ctx context.Context, src sources.Descriptor) (extract.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser, err := br.connect()
	if err != nil {
		return nil, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	var page *rod.Page
	if br.cfg.Stealth {
		page, err = stealth.Page(incognito)
	} else {
		page, err = incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	if br.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: br.cfg.UserAgent}); err != nil {
			br.logger.Warn("failed to set user agent", "error", err)
		}
	}
	if br.cfg.WindowWidth > 0 && br.cfg.WindowHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             br.cfg.WindowWidth,
			Height:            br.cfg.WindowHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			br.logger.Warn("failed to set viewport", "error", err)
		}
	}

	log := br.logger.With("source", src.ID)
	return &browserPage{
		page:      page,
		incognito: incognito,
		auto:      automation.NewBrowserAutomation(page, log),
		throttle:  br.throttle,
		logger:    log,
	}, nil
}

// Close shuts down the browser and releases resources.
func (br *BrowserRenderer) Close() error {
	br.mu.Lock()
	defer br.mu.Unlock()
	var err error
	if br.browser != nil {
		err = br.browser.Close()
		br.browser = nil
	}
	if br.launcher != nil {
		br.launcher.Kill()
		br.launcher = nil
	}
	return err
}

// browserPage is one tab inside an incognito context.
type browserPage struct {
	page      *rod.Page
	incognito *rod.Browser
	auto      *automation.BrowserAutomation
	throttle  *Throttle
	logger    *slog.Logger
}

func (p *browserPage) Navigate(ctx context.Context, url string) error {
	if err := p.throttle.Wait(ctx, url); err != nil {
		return err
	}
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	if err := page.WaitLoad(); err != nil {
		return err
	}
	p.auto.WaitSettled(ctx, 300*time.Millisecond, 10*time.Second)
	p.auto.DismissConsent(ctx, 300*time.Millisecond)
	return nil
}

func (p *browserPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *browserPage) ScrollHeight(ctx context.Context) (int, error) {
	return p.auto.ScrollHeight(ctx)
}

func (p *browserPage) ScrollTo(ctx context.Context, y int) error {
	return p.auto.ScrollTo(ctx, y)
}

func (p *browserPage) Close() error {
	perr := p.page.Close()
	if err := p.incognito.Close(); err != nil {
		return err
	}
	return perr
}
