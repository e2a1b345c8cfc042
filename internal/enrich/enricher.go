// Package enrich adds case-bundle links the listing page did not expose by
// calling the portal's own listing and detail endpoints.
package enrich

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/extract"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize    = 100
	DefaultMaxPages    = 30
	DefaultConcurrency = 4
	DefaultTimeout     = 15 * time.Second
)

// Portal is the subset of the portal API the enricher needs.
type Portal interface {
	BaseURL() string
	ListPage(ctx context.Context, endpoint string, lr ListingRequest) (*ListingPage, error)
	Detail(ctx context.Context, row ListingRow) (string, error)
}

// Options configure an Enricher.
type Options struct {
	PageSize      int
	MaxPages      int
	Concurrency   int
	DetailTimeout time.Duration
}

// Stats summarize one enrichment pass.
type Stats struct {
	Pages    int
	Listed   int
	Matched  int
	Fetched  int
	Failed   int
	Enriched int
}

// Enricher merges bundle links from the detail endpoint into parsed cases.
type Enricher struct {
	portal Portal
	logger *logger.Logger
	opts   Options
}

// NewEnricher creates a new bundle enricher
func NewEnricher(portal Portal, logger *logger.Logger, opts Options) *Enricher {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.DetailTimeout <= 0 {
		opts.DetailTimeout = DefaultTimeout
	}
	return &Enricher{portal: portal, logger: logger, opts: opts}
}

// Enrich returns a copy of cases with fetched bundle links merged in. It
// never fails: when the listing cannot be read the copy is returned as is.
func (e *Enricher) Enrich(ctx context.Context, doc *goquery.Document, pageURL string, cases []models.CaseRecord) ([]models.CaseRecord, Stats) {
	out := make([]models.CaseRecord, len(cases))
	for i, c := range cases {
		out[i] = c.Clone()
	}
	var stats Stats
	if len(out) == 0 {
		return out, stats
	}

	targets := make(map[string][]int)
	for i, c := range out {
		for _, k := range c.MatchKeys() {
			targets[k] = append(targets[k], i)
		}
	}

	endpoint, err := ResolveEndpoint(doc, pageURL)
	if err != nil {
		e.logger.Warn("Skipping enrichment", "reason", "endpoint", "url", pageURL, "error", err)
		return out, stats
	}

	rows, err := e.listMatching(ctx, endpoint, targets, &stats)
	if err != nil {
		e.logger.Warn("Skipping enrichment", "reason", "listing", "endpoint", endpoint, "error", err)
		return out, stats
	}

	links := e.fetchDetails(ctx, rows, &stats)

	touched := make(map[int]bool)
	for i, row := range rows {
		if len(links[i]) == 0 {
			continue
		}
		seen := make(map[int]bool)
		for _, k := range row.Keys() {
			for _, idx := range targets[k] {
				if seen[idx] {
					continue
				}
				seen[idx] = true
				before := len(out[idx].PDFLinks)
				out[idx].PDFLinks = models.MergeLinks(out[idx].PDFLinks, links[i])
				if len(out[idx].PDFLinks) > before {
					touched[idx] = true
				}
			}
		}
	}
	stats.Enriched = len(touched)

	e.logger.Info("Enrichment complete",
		"pages", stats.Pages,
		"listed", stats.Listed,
		"matched", stats.Matched,
		"fetched", stats.Fetched,
		"failed", stats.Failed,
		"enriched", stats.Enriched,
	)
	return out, stats
}

// listMatching pages through the listing and keeps rows that join to a
// target case. The page cap bounds the loop whatever total the server claims.
func (e *Enricher) listMatching(ctx context.Context, endpoint string, targets map[string][]int, stats *Stats) ([]ListingRow, error) {
	var matched []ListingRow
	for page := 0; page < e.opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := page * e.opts.PageSize
		resp, err := e.portal.ListPage(ctx, endpoint, ListingRequest{Draw: page + 1, Start: start, Length: e.opts.PageSize})
		if err != nil {
			if page == 0 {
				return nil, err
			}
			e.logger.Warn("Listing page failed, using rows read so far", "start", start, "error", err)
			break
		}
		stats.Pages++
		stats.Listed += len(resp.Data)

		for _, raw := range resp.Data {
			row, ok := ParseRow(raw)
			if !ok || !intersects(row.Keys(), targets) {
				continue
			}
			matched = append(matched, row)
		}

		if len(resp.Data) == 0 || len(resp.Data) < e.opts.PageSize {
			break
		}
		if total := resp.Total(); total > 0 && start+len(resp.Data) >= total {
			break
		}
		if page == e.opts.MaxPages-1 {
			e.logger.Warn("Listing page cap reached", "pages", e.opts.MaxPages, "reported_total", resp.Total())
		}
	}
	stats.Matched = len(matched)
	return matched, nil
}

// fetchDetails fetches bundle links for each row. A failed row yields no
// links and does not stop the others.
func (e *Enricher) fetchDetails(ctx context.Context, rows []ListingRow, stats *Stats) [][]models.BundleLink {
	links := make([][]models.BundleLink, len(rows))
	failed := make([]bool, len(rows))
	fetched := make([]bool, len(rows))
	base := e.portal.BaseURL()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, row := range rows {
		if !row.Complete() {
			e.logger.Debug("Listing row missing identifiers", "efile_no", row.EfileNo)
			continue
		}
		i, row := i, row
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(gctx, e.opts.DetailTimeout)
			defer cancel()

			fragment, err := e.portal.Detail(rctx, row)
			if err != nil {
				e.logger.Warn("Case detail fetch failed", "efile_no", row.EfileNo, "error", err)
				failed[i] = true
				return nil
			}
			doc, err := extract.ParseDocument(fragment)
			if err != nil {
				e.logger.Warn("Case detail unparsable", "efile_no", row.EfileNo, "error", err)
				failed[i] = true
				return nil
			}
			links[i] = models.BundlesOnly(extract.BundleButtons(doc.Selection, base))
			fetched[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i := range rows {
		if fetched[i] {
			stats.Fetched++
		}
		if failed[i] {
			stats.Failed++
		}
	}
	return links
}

func intersects(keys []string, targets map[string][]int) bool {
	for _, k := range keys {
		if _, ok := targets[k]; ok {
			return true
		}
	}
	return false
}
