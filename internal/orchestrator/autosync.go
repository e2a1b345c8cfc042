package orchestrator

import (
	"context"
	"errors"
)

// ScheduleAutoSync starts the best-effort auto-sync loop: after the head
// start, check the case table every interval and sync as soon as it has
// rows, giving up quietly after the configured number of attempts.
// Overlapping loops are allowed; only one of them gets past the in-flight
// check.
func (o *Orchestrator) ScheduleAutoSync() {
	o.logger.Debug("Auto-sync scheduled",
		"head_start", o.opts.AutoSyncHeadStart,
		"interval", o.opts.AutoSyncInterval,
		"attempts", o.opts.AutoSyncAttempts,
	)
	o.schedule(o.opts.AutoSyncHeadStart, func() { o.autoAttempt(1) })
}

func (o *Orchestrator) autoAttempt(n int) {
	if !o.live() {
		o.logger.Debug("Dropping auto-sync attempt from a stale page session", "attempt", n)
		return
	}

	if o.tableReady(o.ctx) {
		o.logger.Info("Case table ready, starting auto-sync", "attempt", n)
		if _, err := o.Sync(o.ctx, Request{Trigger: TriggerAuto}); err != nil && !errors.Is(err, ErrSyncInProgress) {
			o.logger.Warn("Auto-sync failed", "attempt", n, "error", err)
		}
		return
	}

	if n >= o.opts.AutoSyncAttempts {
		o.logger.Warn("Auto-sync retries exhausted", "attempts", n)
		return
	}
	o.logger.Debug("Case table not ready, retrying auto-sync", "attempt", n, "retry_in", o.opts.AutoSyncInterval)
	o.schedule(o.opts.AutoSyncInterval, func() { o.autoAttempt(n + 1) })
}

func (o *Orchestrator) tableReady(ctx context.Context) bool {
	pageURL, err := o.deps.Page.URL(ctx)
	if err != nil || !o.supported(pageURL) {
		return false
	}
	snap, err := o.deps.Page.Snapshot(ctx)
	if err != nil {
		return false
	}
	return ready(snap)
}
