// Package orchestrator runs the sync pipeline for one portal page session:
// wait for the case table, identify and verify the advocate, parse and
// enrich the cases, and hand them to the backend.
package orchestrator

import (
	"errors"
	"time"

	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/config"
)

// State is the pipeline position of an orchestrator.
type State string

const (
	StateIdle               State = "idle"
	StateWaitingForContent  State = "waiting_for_content"
	StateExtractingIdentity State = "extracting_identity"
	StateVerifyingIdentity  State = "verifying_identity"
	StateParsingCases       State = "parsing_cases"
	StateEnriching          State = "enriching"
	StateSyncing            State = "syncing"
	StateCompleted          State = "completed"
	StateFailed             State = "failed"
	StateHalted             State = "halted"
)

var (
	ErrSyncInProgress  = errors.New("sync already in progress")
	ErrUnsupportedPage = errors.New("page is not the case listing")
	ErrIdentityMissing = errors.New("advocate identity not found")
	ErrNotVerified     = errors.New("advocate identity not verified")
	ErrNoMatch         = errors.New("no case matches the selection")
	ErrSyncRejected    = errors.New("backend rejected sync")
	ErrClosed          = errors.New("page session closed")
	ErrPanic           = errors.New("sync aborted unexpectedly")
)

// Messages shown to the user. Only this package turns errors into text.
const (
	MsgIdentityMissing   = "Cannot identify the advocate on this page. Please refresh the page and try again."
	MsgVerifyUnavailable = "Could not reach LawMate to verify your identity. Please try again."
	MsgReceiverMissing   = "LawMate is not connected to this page. Please reload the portal page and try again."
	MsgSyncFailed        = "Sync failed. Please try again."
	MsgUnsupportedPage   = "Open the My Cases page on the portal to sync your cases."
	MsgInitFailed        = "LawMate failed to initialize on this page."
	MsgNoCases           = "No cases found on this page."
	MsgNoSelection       = "Select a case number on the page to sync it."
	MsgNoMatch           = "No case on this page matches the selected text."
)

// Trigger says what started a sync.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerAuto     Trigger = "auto"
	TriggerSelected Trigger = "selected"
)

// Options tune the pipeline's timing.
type Options struct {
	CasesPath         string
	ContentTimeout    time.Duration
	PollInterval      time.Duration
	AutoSyncAttempts  int
	AutoSyncInterval  time.Duration
	AutoSyncHeadStart time.Duration
	SyncTimeout       time.Duration
}

// DefaultOptions are the production timings.
func DefaultOptions() Options {
	return Options{
		CasesPath:         "/mycases",
		ContentTimeout:    25 * time.Second,
		PollInterval:      500 * time.Millisecond,
		AutoSyncAttempts:  6,
		AutoSyncInterval:  5 * time.Second,
		AutoSyncHeadStart: 2 * time.Second,
		SyncTimeout:       2 * time.Minute,
	}
}

func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.CasesPath = cfg.PortalCasesPath
	opts.ContentTimeout = cfg.ContentWaitTimeout
	opts.PollInterval = cfg.ContentPollInterval
	opts.AutoSyncAttempts = cfg.AutoSyncAttempts
	opts.AutoSyncInterval = cfg.AutoSyncInterval
	opts.AutoSyncHeadStart = cfg.AutoSyncHeadStart
	return opts.withDefaults()
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CasesPath == "" {
		o.CasesPath = d.CasesPath
	}
	if o.ContentTimeout <= 0 {
		o.ContentTimeout = d.ContentTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.AutoSyncAttempts <= 0 {
		o.AutoSyncAttempts = d.AutoSyncAttempts
	}
	if o.AutoSyncInterval <= 0 {
		o.AutoSyncInterval = d.AutoSyncInterval
	}
	if o.AutoSyncHeadStart < 0 {
		o.AutoSyncHeadStart = 0
	}
	if o.SyncTimeout <= 0 {
		o.SyncTimeout = d.SyncTimeout
	}
	return o
}
