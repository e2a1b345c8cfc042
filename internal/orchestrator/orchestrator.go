package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/channel"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/database"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/enrich"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/extract"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/identity"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/notify"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/portal"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/status"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
)

type Verifier interface {
	Verify(ctx context.Context, identity models.AdvocateIdentity) (identity.Verification, error)
}

type Enricher interface {
	Enrich(ctx context.Context, doc *goquery.Document, pageURL string, cases []models.CaseRecord) ([]models.CaseRecord, enrich.Stats)
}

// CookieSink receives the page's session cookies before enrichment.
type CookieSink interface {
	SetCookies(cookies []*http.Cookie)
}

type RunRecorder interface {
	Start(ctx context.Context, run database.SyncRun) (string, error)
	Finish(ctx context.Context, runID string, result database.RunResult) error
}

// Deps are the collaborators of an orchestrator. Enricher, Cookies and Runs
// are optional.
type Deps struct {
	Page       portal.Page
	Tables     *extract.TableExtractor
	Identities *extract.IdentityExtractor
	Verifier   Verifier
	Enricher   Enricher
	Cookies    CookieSink
	Requester  channel.Requester
	Board      status.Board
	Notifier   notify.Notifier
	Runs       RunRecorder
	Logger     *logger.Logger
}

// Request describes one sync.
type Request struct {
	Trigger  Trigger
	Selected string
}

// Result summarizes a finished sync.
type Result struct {
	RunID      string                   `json:"run_id,omitempty"`
	Generation uint64                   `json:"generation"`
	State      State                    `json:"state"`
	Identity   *models.AdvocateIdentity `json:"identity,omitempty"`
	Cases      int                      `json:"cases"`
	Enriched   int                      `json:"enriched"`
	Status     string                   `json:"status,omitempty"`
}

// Orchestrator runs syncs for one page session. Work scheduled by a
// superseded session is dropped when it fires.
type Orchestrator struct {
	deps       Deps
	opts       Options
	logger     *logger.Logger
	generation uint64
	isCurrent  func(uint64) bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      State
	inProgress bool
	closed     bool
	timers     map[*time.Timer]struct{}
	last       *Result
}

// New creates the orchestrator for page session generation. isCurrent
// reports whether a generation is still the live one; nil means always.
func New(deps Deps, opts Options, generation uint64, isCurrent func(uint64) bool) *Orchestrator {
	if isCurrent == nil {
		isCurrent = func(uint64) bool { return true }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		deps:       deps,
		opts:       opts.withDefaults(),
		logger:     deps.Logger.With("generation", generation),
		generation: generation,
		isCurrent:  isCurrent,
		ctx:        ctx,
		cancel:     cancel,
		state:      StateIdle,
		timers:     make(map[*time.Timer]struct{}),
	}
}

func (o *Orchestrator) Generation() uint64 {
	return o.generation
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) InProgress() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inProgress
}

// LastResult returns the outcome of the most recent sync, if any.
func (o *Orchestrator) LastResult() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return nil
	}
	r := *o.last
	return &r
}

// Pending returns the number of scheduled callbacks not yet fired.
func (o *Orchestrator) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.timers)
}

func (o *Orchestrator) live() bool {
	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()
	return !closed && o.isCurrent(o.generation)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logger.Debug("State changed", "state", s)
}

// Close stops pending timers and waits for background work to finish.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	for t := range o.timers {
		if t.Stop() {
			o.wg.Done()
		}
	}
	o.timers = map[*time.Timer]struct{}{}
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

// schedule runs fn after d unless the orchestrator is closed first.
func (o *Orchestrator) schedule(d time.Duration, fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}

	o.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		defer o.wg.Done()
		o.mu.Lock()
		delete(o.timers, t)
		o.mu.Unlock()
		fn()
	})
	o.timers[t] = struct{}{}
}

// goSync runs a sync in the background, tracked by Close.
func (o *Orchestrator) goSync(req Request) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_, _ = o.Sync(o.ctx, req)
	}()
}

// acquire takes the single in-flight slot.
func (o *Orchestrator) acquire() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.inProgress {
		return ErrSyncInProgress
	}
	o.inProgress = true
	return nil
}

func (o *Orchestrator) release(res *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inProgress = false
	o.last = res
}

// Sync runs the whole pipeline once. A trigger that arrives while another
// sync is running is dropped with ErrSyncInProgress.
func (o *Orchestrator) Sync(ctx context.Context, req Request) (res *Result, err error) {
	if req.Trigger == "" {
		req.Trigger = TriggerManual
	}
	if err := o.acquire(); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			o.logger.Warn("Sync already in progress, dropping trigger", "trigger", req.Trigger)
		}
		return nil, err
	}

	res = &Result{Generation: o.generation, State: StateIdle}
	var runID string
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Sync panicked", "panic", r)
			o.notify(notify.LevelError, MsgSyncFailed, false)
			res.State = StateFailed
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		o.setState(res.State)
		o.finishRun(runID, res, err)
		o.release(res)
	}()

	ctx, cancel := context.WithTimeout(ctx, o.opts.SyncTimeout)
	defer cancel()

	runID = o.startRun(ctx, req)
	res.RunID = runID

	err = o.run(ctx, req, res)
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, req Request, res *Result) error {
	pageURL, err := o.deps.Page.URL(ctx)
	if err != nil {
		res.State = StateFailed
		o.notify(notify.LevelError, MsgSyncFailed, false)
		return fmt.Errorf("failed to read page url: %w", err)
	}
	if !o.supported(pageURL) {
		res.State = StateHalted
		o.logger.Warn("Sync requested on unsupported page", "url", pageURL)
		o.notify(notify.LevelError, MsgUnsupportedPage, true)
		return ErrUnsupportedPage
	}

	o.setState(StateWaitingForContent)
	snap, err := o.waitForContent(ctx)
	if err != nil {
		res.State = StateFailed
		o.notify(notify.LevelError, MsgSyncFailed, false)
		return err
	}
	doc, err := extract.ParseDocument(snap.HTML)
	if err != nil {
		res.State = StateFailed
		o.notify(notify.LevelError, MsgSyncFailed, false)
		return err
	}

	o.setState(StateExtractingIdentity)
	advocate := o.deps.Identities.Extract(doc, snap.URL, snap.UserAgent)
	if advocate == nil {
		res.State = StateHalted
		o.notify(notify.LevelError, MsgIdentityMissing, true)
		return ErrIdentityMissing
	}
	res.Identity = advocate

	o.setState(StateVerifyingIdentity)
	verdict, err := o.deps.Verifier.Verify(ctx, *advocate)
	if err != nil {
		res.State = StateFailed
		if errors.Is(err, channel.ErrReceiverMissing) {
			o.notify(notify.LevelError, MsgReceiverMissing, false)
		} else {
			o.notify(notify.LevelError, MsgVerifyUnavailable, false)
		}
		return err
	}
	if !verdict.Verified {
		res.State = StateHalted
		o.notify(notify.LevelError, verdict.Message, true)
		return fmt.Errorf("%w: %s", ErrNotVerified, verdict.Message)
	}

	o.setState(StateParsingCases)
	cases := o.deps.Tables.Extract(doc, snap.URL)
	if req.Trigger == TriggerSelected {
		if strings.TrimSpace(req.Selected) == "" {
			res.State = StateHalted
			o.notify(notify.LevelError, MsgNoSelection, false)
			return ErrNoMatch
		}
		cases = FilterSelected(cases, req.Selected)
		if len(cases) == 0 {
			res.State = StateHalted
			o.logger.Warn("Selection matched no case", "selected", req.Selected)
			o.notify(notify.LevelError, MsgNoMatch, false)
			return ErrNoMatch
		}
	}
	if len(cases) == 0 {
		res.State = StateCompleted
		o.logger.Warn("No cases to sync", "url", snap.URL)
		o.notify(notify.LevelInfo, MsgNoCases, false)
		return nil
	}
	res.Cases = len(cases)

	if o.deps.Enricher != nil {
		o.setState(StateEnriching)
		if o.deps.Cookies != nil {
			o.deps.Cookies.SetCookies(snap.Cookies)
		}
		var stats enrich.Stats
		cases, stats = o.deps.Enricher.Enrich(ctx, doc, snap.URL, cases)
		res.Enriched = stats.Enriched
	}

	o.setState(StateSyncing)
	numbers := make([]string, len(cases))
	for i, c := range cases {
		numbers[i] = c.DisplayNumber()
	}
	o.deps.Board.MarkSyncing(numbers)
	o.notify(notify.LevelProgress, fmt.Sprintf("Syncing %d cases...", len(cases)), false)

	var resp channel.SyncResponse
	err = o.deps.Requester.Request(ctx, channel.ActionSyncCases, channel.SyncRequest{Identity: *advocate, Cases: cases}, &resp)
	if err == nil && !resp.Accepted() {
		reason := resp.Error
		if reason == "" {
			reason = resp.Status
		}
		err = fmt.Errorf("%w: %s", ErrSyncRejected, reason)
	}
	if err != nil {
		res.State = StateFailed
		res.Status = resp.Status
		reverted := o.deps.Board.Revert(numbers)
		o.logger.Error("Sync failed", "cases", len(cases), "reverted", reverted, "error", err)
		switch {
		case errors.Is(err, channel.ErrReceiverMissing):
			o.notify(notify.LevelError, MsgReceiverMissing, false)
		case resp.Error != "":
			o.notify(notify.LevelError, resp.Error, false)
		default:
			o.notify(notify.LevelError, MsgSyncFailed, false)
		}
		return err
	}

	res.State = StateCompleted
	res.Status = resp.Status
	o.logger.Info("Sync accepted",
		"cases", len(cases),
		"enriched", res.Enriched,
		"status", resp.Status,
		"advocate", advocate.Name,
	)
	o.notify(notify.LevelSuccess, fmt.Sprintf("Sync started for %d cases", len(cases)), false)
	return nil
}

func (o *Orchestrator) supported(pageURL string) bool {
	return strings.Contains(strings.ToLower(pageURL), strings.ToLower(o.opts.CasesPath))
}

// waitForContent polls until the case table has a populated row or the
// content timeout passes. A timeout is not an error: the last snapshot is
// returned and parsing reports whatever it finds.
func (o *Orchestrator) waitForContent(ctx context.Context) (*portal.Snapshot, error) {
	deadline := time.Now().Add(o.opts.ContentTimeout)
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		snap, err := o.deps.Page.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read page: %w", err)
		}
		if ready(snap) {
			return snap, nil
		}
		if !time.Now().Before(deadline) {
			o.logger.Info("Content wait timed out, continuing", "timeout", o.opts.ContentTimeout)
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func ready(snap *portal.Snapshot) bool {
	doc, err := extract.ParseDocument(snap.HTML)
	return err == nil && extract.HasCaseRows(doc)
}

// FilterSelected keeps cases whose case number or e-filing number matches
// the selected text once both are reduced to letters and digits.
func FilterSelected(cases []models.CaseRecord, selected string) []models.CaseRecord {
	sel := models.NormalizeAlnum(selected)
	if sel == "" {
		return nil
	}
	var out []models.CaseRecord
	for _, c := range cases {
		candidates := []string{c.EfilingNumber}
		if c.CaseNumber != nil {
			candidates = append(candidates, *c.CaseNumber)
		}
		for _, cand := range candidates {
			key := models.NormalizeAlnum(cand)
			if key != "" && (strings.Contains(key, sel) || strings.Contains(sel, key)) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (o *Orchestrator) notify(level notify.Level, msg string, persistent bool) {
	if o.deps.Notifier != nil {
		o.deps.Notifier.Notify(level, msg, persistent)
	}
}

func (o *Orchestrator) startRun(ctx context.Context, req Request) string {
	if o.deps.Runs == nil {
		return ""
	}
	pageURL, _ := o.deps.Page.URL(ctx)
	id, err := o.deps.Runs.Start(ctx, database.SyncRun{
		Generation: o.generation,
		Trigger:    string(req.Trigger),
		PageURL:    pageURL,
	})
	if err != nil {
		o.logger.Warn("Failed to record sync run", "error", err)
		return ""
	}
	return id
}

func (o *Orchestrator) finishRun(runID string, res *Result, err error) {
	if o.deps.Runs == nil || runID == "" {
		return
	}
	result := database.RunResult{
		Status:        runStatus(res, err),
		CaseCount:     res.Cases,
		EnrichedCount: res.Enriched,
	}
	if res.Identity != nil {
		result.AdvocateName = res.Identity.Name
	}
	if err != nil {
		result.Error = err.Error()
	}
	// the sync context may already be done; the run log is written regardless
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ferr := o.deps.Runs.Finish(ctx, runID, result); ferr != nil {
		o.logger.Warn("Failed to finish sync run", "run_id", runID, "error", ferr)
	}
}

func runStatus(res *Result, err error) string {
	switch {
	case res.State == StateHalted:
		return database.RunHalted
	case err != nil:
		return database.RunFailed
	case res.Cases == 0:
		return database.RunEmpty
	default:
		return database.RunCompleted
	}
}
