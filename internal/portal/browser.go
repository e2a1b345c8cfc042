package portal

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/config"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
)

// Browser owns the browser the advocate uses for the portal.
type Browser struct {
	cfg     *config.Config
	browser *rod.Browser
	mu      sync.Mutex
	logger  *logger.Logger
	page    *BrowserPage
}

// NewBrowser attaches to a running browser when a control url is
// configured, otherwise launches one on a persistent profile so the portal
// login survives restarts.
func NewBrowser(cfg *config.Config, logger *logger.Logger) (*Browser, error) {
	controlURL := cfg.BrowserControlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(cfg.HeadlessMode).
			UserDataDir(cfg.BrowserProfileDir).
			Set("user-agent", cfg.UserAgent).
			Set("disable-blink-features", "AutomationControlled").
			Delete("enable-automation")

		if cfg.BrowserPath != "" {
			l = l.Bin(cfg.BrowserPath)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Browser{cfg: cfg, browser: browser, logger: logger}, nil
}

// Open returns the tab showing the portal, opening the case listing when no
// such tab exists.
func (b *Browser) Open(ctx context.Context) (*BrowserPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.page != nil {
		return b.page, nil
	}

	pages, err := b.browser.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if strings.HasPrefix(info.URL, b.cfg.PortalBaseURL) {
			b.logger.Info("Attached to portal tab", "url", info.URL)
			b.page = &BrowserPage{page: p}
			return b.page, nil
		}
	}

	target := b.cfg.PortalBaseURL + b.cfg.PortalCasesPath
	p, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		return nil, fmt.Errorf("failed to open portal: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := p.Context(loadCtx).WaitLoad(); err != nil {
		// the advocate may still be on the login page; carry on
		b.logger.Warn("Portal load timeout", "url", target, "error", err)
	}

	b.logger.Info("Opened portal tab", "url", target)
	b.page = &BrowserPage{page: p}
	return b.page, nil
}

// Close closes the browser connection.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.browser.Close()
}

// BrowserPage is a live portal tab.
type BrowserPage struct {
	page *rod.Page
}

func (p *BrowserPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page info: %w", err)
	}
	return info.URL, nil
}

func (p *BrowserPage) Snapshot(ctx context.Context) (*Snapshot, error) {
	page := p.page.Context(ctx)

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page html: %w", err)
	}
	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to read page info: %w", err)
	}

	snap := &Snapshot{HTML: html, URL: info.URL, TakenAt: time.Now()}

	if ua, err := page.Eval(`() => navigator.userAgent`); err == nil {
		snap.UserAgent = ua.Value.Str()
	}

	cookies, err := page.Cookies([]string{info.URL})
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	for _, c := range cookies {
		snap.Cookies = append(snap.Cookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return snap, nil
}
