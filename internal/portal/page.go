// Package portal gives read-only access to the portal tab the advocate is
// logged in to.
package portal

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Snapshot is the page state at one instant.
type Snapshot struct {
	HTML      string
	URL       string
	UserAgent string
	Cookies   []*http.Cookie
	TakenAt   time.Time
}

// Page is a live or recorded portal page.
type Page interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	URL(ctx context.Context) (string, error)
}

// StaticPage serves fixed markup. It backs offline parsing and tests, and
// its content can be swapped to simulate loading and navigation.
type StaticPage struct {
	mu        sync.RWMutex
	html      string
	url       string
	userAgent string
	cookies   []*http.Cookie
}

func NewStaticPage(html, url, userAgent string) *StaticPage {
	return &StaticPage{html: html, url: url, userAgent: userAgent}
}

func (p *StaticPage) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

func (p *StaticPage) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *StaticPage) SetCookies(cookies []*http.Cookie) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = cookies
}

func (p *StaticPage) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &Snapshot{
		HTML:      p.html,
		URL:       p.url,
		UserAgent: p.userAgent,
		Cookies:   append([]*http.Cookie(nil), p.cookies...),
		TakenAt:   time.Now(),
	}, nil
}

func (p *StaticPage) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.url, nil
}
