package portal

import (
	"context"
	"time"

	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
)

// Watch polls the page url every interval and calls onChange with the new
// url whenever it differs from the last one seen, including once for the
// initial url. It returns when ctx is done.
func Watch(ctx context.Context, page Page, interval time.Duration, logger *logger.Logger, onChange func(url string)) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	check := func() {
		u, err := page.URL(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Debug("Page url unavailable", "error", err)
			}
			return
		}
		if u == "" || u == last {
			return
		}
		if last != "" {
			logger.Info("Page navigated", "from", last, "to", u)
		}
		last = u
		onChange(u)
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
