package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/channel"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/database"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/identity"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/notify"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncSendsCasesToBackend(t *testing.T) {
	h := newHarness(t, casesPage(wpRow, crlRow))

	res, err := h.o.Sync(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 2, res.Cases)
	assert.Equal(t, channel.SyncStatusStarted, res.Status)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, StateCompleted, h.o.State())
	assert.False(t, h.o.InProgress())

	require.Equal(t, 1, h.req.sent(channel.ActionVerifyIdentity))
	reqs := h.req.syncRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Jane Advocate", reqs[0].Identity.Name)
	require.Len(t, reqs[0].Cases, 2)
	assert.Equal(t, "EKHC/2026/WPC/05896", reqs[0].Cases[0].EfilingNumber)

	for _, c := range reqs[0].Cases {
		e, ok := h.board.Get(c.DisplayNumber(), "")
		require.True(t, ok, c.DisplayNumber())
		assert.Equal(t, status.StatusSyncing, e.Status)
	}

	last := h.lastNotification()
	assert.Equal(t, notify.LevelSuccess, last.Level)
	assert.Equal(t, "Sync started for 2 cases", last.Message)

	run := h.runs.last()
	assert.Equal(t, database.RunCompleted, run.Status)
	assert.Equal(t, "Jane Advocate", run.AdvocateName)
	assert.Equal(t, 2, run.CaseCount)
	require.NotNil(t, h.o.LastResult())
	assert.Equal(t, StateCompleted, h.o.LastResult().State)
}

func TestSyncFailureRevertsToPending(t *testing.T) {
	h := newHarness(t, casesPage(wpRow, crlRow))
	h.req.sync = channel.SyncResponse{Status: "failed"}

	res, err := h.o.Sync(context.Background(), Request{})
	require.ErrorIs(t, err, ErrSyncRejected)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateFailed, h.o.State())

	reqs := h.req.syncRequests()
	require.Len(t, reqs, 1)
	for _, c := range reqs[0].Cases {
		e, ok := h.board.Get(c.DisplayNumber(), "")
		require.True(t, ok)
		assert.Equal(t, status.StatusPending, e.Status)
	}

	last := h.lastNotification()
	assert.Equal(t, notify.LevelError, last.Level)
	assert.Equal(t, MsgSyncFailed, last.Message)
	assert.Equal(t, database.RunFailed, h.runs.last().Status)
	assert.Equal(t, 1, h.logs.FilterMessage("Sync failed").Len())
}

func TestSyncRejectionShowsBackendError(t *testing.T) {
	h := newHarness(t, casesPage(wpRow))
	h.req.sync = channel.SyncResponse{Status: "error", Error: "Subscription expired"}

	_, err := h.o.Sync(context.Background(), Request{})
	require.ErrorIs(t, err, ErrSyncRejected)
	assert.Equal(t, "Subscription expired", h.lastNotification().Message)
}

func TestSyncReceiverMissing(t *testing.T) {
	h := newHarness(t, casesPage(wpRow))
	h.req.syncErr = fmt.Errorf("%w: connection refused", channel.ErrReceiverMissing)

	_, err := h.o.Sync(context.Background(), Request{})
	require.ErrorIs(t, err, channel.ErrReceiverMissing)
	assert.Equal(t, MsgReceiverMissing, h.lastNotification().Message)

	reqs := h.req.syncRequests()
	require.Len(t, reqs, 1)
	e, ok := h.board.Get(reqs[0].Cases[0].DisplayNumber(), "")
	require.True(t, ok)
	assert.Equal(t, status.StatusPending, e.Status)
}

func TestSyncChannelError(t *testing.T) {
	h := newHarness(t, casesPage(wpRow))
	h.req.syncErr = fmt.Errorf("%w: status 500", channel.ErrChannel)

	_, err := h.o.Sync(context.Background(), Request{})
	require.ErrorIs(t, err, channel.ErrChannel)
	assert.Equal(t, MsgSyncFailed, h.lastNotification().Message)
}

func TestSyncHaltsWithoutIdentity(t *testing.T) {
	h := newHarness(t, `<html><body>`+casesTable(wpRow)+`</body></html>`)

	res, err := h.o.Sync(context.Background(), Request{})
	require.ErrorIs(t, err, ErrIdentityMissing)
	assert.Equal(t, StateHalted, res.State)
	assert.Equal(t, 0, h.req.sent(channel.ActionVerifyIdentity))
	assert.Equal(t, 0, h.req.sent(channel.ActionSyncCases))

	last := h.lastNotification()
	assert.Equal(t, MsgIdentityMissing, last.Message)
	assert.True(t, last.Persistent)
	assert.Equal(t, database.RunHalted, h.runs.last().Status)
}

func TestSyncHaltsWhenNotVerified(t *testing.T) {
	h := newHarness(t, casesPage(wpRow))
	h.req.verify = channel.VerifyResponse{Verified: false, Message: "Logged in as a different advocate"}

	res, err := h.o.Sync(context.Background(), Request{})
	require.ErrorIs(t, err, ErrNotVerified)
	assert.Equal(t, StateHalted, res.State)
	assert.Equal(t, 0, h.req.sent(channel.ActionSyncCases))

	last := h.lastNotification()
	assert.Equal(t, "Logged in as a different advocate", last.Message)
	assert.True(t, last.Persistent)
}

func TestSyncVerifyUnreachable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"receiver missing", fmt.Errorf("%w: refused", channel.ErrReceiverMissing), MsgReceiverMissing},
		{"channel error", fmt.Errorf("%w: timeout", channel.ErrChannel), MsgVerifyUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, casesPage(wpRow))
			h.req.verifyErr = tt.err

			res, err := h.o.Sync(context.Background(), Request{})
			require.Error(t, err)
			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, tt.want, h.lastNotification().Message)
			assert.Equal(t, 0, h.req.sent(channel.ActionSyncCases))
		})
	}
}

func TestSyncRejectsUnsupportedPage(t *testing.T) {
	h := newHarness(t, casesPage(wpRow))
	h.page.SetURL("https://efiling.example.gov.in/dashboard")

	res, err := h.o.Sync(context.Background(), Request{})
	require.ErrorIs(t, err, ErrUnsupportedPage)
	assert.Equal(t, StateHalted, res.State)
	assert.Equal(t, int32(0), h.page.count())
	assert.Equal(t, MsgUnsupportedPage, h.lastNotification().Message)
}

func TestSyncDropsConcurrentTrigger(t *testing.T) {
	h := newHarness(t, casesPage(wpRow))
	h.req.syncGate = make(chan struct{})
	h.req.syncStarted = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := h.o.Sync(context.Background(), Request{})
		done <- err
	}()
	<-h.req.syncStarted
	assert.True(t, h.o.InProgress())
	assert.Equal(t, StateSyncing, h.o.State())

	_, err := h.o.Sync(context.Background(), Request{})
	require.ErrorIs(t, err, ErrSyncInProgress)
	assert.Equal(t, 1, h.logs.FilterMessage("Sync already in progress, dropping trigger").Len())

	close(h.req.syncGate)
	require.NoError(t, <-done)
	assert.False(t, h.o.InProgress())

	_, err = h.o.Sync(context.Background(), Request{})
	require.NoError(t, err)
	assert.Len(t, h.req.syncRequests(), 2)
}

func TestSyncWaitsForLateTable(t *testing.T) {
	h := newHarness(t, casesPage(), func(o *Options) { o.ContentTimeout = 5 * time.Second })
	h.page.onSnapshot = func(n int32) {
		if n == 3 {
			h.page.SetHTML(casesPage(wpRow))
		}
	}

	res, err := h.o.Sync(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cases)
	assert.Equal(t, int32(3), h.page.count())
	assert.Equal(t, 0, h.logs.FilterMessage("Content wait timed out, continuing").Len())
}

func TestSyncContentTimeoutIsQuiet(t *testing.T) {
	h := newHarness(t, casesPage(), func(o *Options) { o.ContentTimeout = 30 * time.Millisecond })

	res, err := h.o.Sync(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 0, res.Cases)
	assert.Equal(t, 1, h.logs.FilterMessage("Content wait timed out, continuing").Len())
	assert.Equal(t, 0, h.req.sent(channel.ActionSyncCases))
	assert.Equal(t, MsgNoCases, h.lastNotification().Message)
	assert.Equal(t, database.RunEmpty, h.runs.last().Status)
}

func TestSyncSelectedCase(t *testing.T) {
	h := newHarness(t, casesPage(wpRow, crlRow))

	res, err := h.o.Sync(context.Background(), Request{Trigger: TriggerSelected, Selected: " wp(c) 5896 / 2026 "})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cases)

	reqs := h.req.syncRequests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Cases, 1)
	assert.Equal(t, "EKHC/2026/WPC/05896", reqs[0].Cases[0].EfilingNumber)
}

func TestSyncSelectedWithoutMatch(t *testing.T) {
	tests := []struct {
		name     string
		selected string
		want     string
	}{
		{"no match", "OP 1/1999", MsgNoMatch},
		{"empty selection", "   ", MsgNoSelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, casesPage(wpRow, crlRow))

			res, err := h.o.Sync(context.Background(), Request{Trigger: TriggerSelected, Selected: tt.selected})
			require.ErrorIs(t, err, ErrNoMatch)
			assert.Equal(t, StateHalted, res.State)
			assert.Equal(t, tt.want, h.lastNotification().Message)
			assert.Equal(t, 0, h.req.sent(channel.ActionSyncCases))
		})
	}
}

func TestFilterSelected(t *testing.T) {
	cases := []models.CaseRecord{
		{CaseNumber: models.StringPtr("WP(C) 5896/2026"), EfilingNumber: "EKHC/2026/WPC/05896"},
		{EfilingNumber: "EKHC/2024/CRLA/00012"},
	}

	got := FilterSelected(cases, "wp(c)5896/2026")
	require.Len(t, got, 1)
	assert.Equal(t, "EKHC/2026/WPC/05896", got[0].EfilingNumber)

	got = FilterSelected(cases, "Case: EKHC/2024/CRLA/00012 (pending)")
	require.Len(t, got, 1)
	assert.Equal(t, "EKHC/2024/CRLA/00012", got[0].EfilingNumber)

	assert.Empty(t, FilterSelected(cases, "--"))
}

func TestSyncAfterCloseIsRejected(t *testing.T) {
	h := newHarness(t, casesPage(wpRow))
	h.o.Close()

	_, err := h.o.Sync(context.Background(), Request{})
	require.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, h.req.sent(channel.ActionVerifyIdentity))
}

func TestAutoSyncExhaustsRetries(t *testing.T) {
	h := newHarness(t, casesPage())

	h.o.ScheduleAutoSync()
	require.Eventually(t, func() bool {
		return h.logs.FilterMessage("Auto-sync retries exhausted").Len() == 1 && h.o.Pending() == 0
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, h.logs.FilterMessage("Auto-sync retries exhausted").Len())
	assert.Equal(t, 5, h.logs.FilterMessage("Case table not ready, retrying auto-sync").Len())
	assert.Equal(t, int32(6), h.page.count())
	assert.Equal(t, 0, h.o.Pending())
	assert.Equal(t, 0, h.req.sent(channel.ActionVerifyIdentity))
}

func TestAutoSyncStartsOnceTableAppears(t *testing.T) {
	h := newHarness(t, casesPage())
	h.page.onSnapshot = func(n int32) {
		if n == 2 {
			h.page.SetHTML(casesPage(wpRow))
		}
	}

	h.o.ScheduleAutoSync()
	require.Eventually(t, func() bool {
		return len(h.req.syncRequests()) == 1 && !h.o.InProgress() && h.o.Pending() == 0
	}, 2*time.Second, 5*time.Millisecond)

	started := h.logs.FilterMessage("Case table ready, starting auto-sync").All()
	require.Len(t, started, 1)
	assert.EqualValues(t, 2, started[0].ContextMap()["attempt"])
	assert.Equal(t, 0, h.logs.FilterMessage("Auto-sync retries exhausted").Len())
	assert.Equal(t, string(TriggerAuto), h.runs.triggers()[0])
}

func TestAutoSyncDroppedForStaleSession(t *testing.T) {
	h := newHarness(t, casesPage(wpRow))
	var current atomic.Bool
	current.Store(true)
	o := New(h.deps, h.opts, 7, func(gen uint64) bool { return current.Load() && gen == 7 })
	defer o.Close()

	o.opts.AutoSyncHeadStart = 20 * time.Millisecond
	o.ScheduleAutoSync()
	current.Store(false)

	require.Eventually(t, func() bool { return o.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return h.logs.FilterMessage("Dropping auto-sync attempt from a stale page session").Len() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), h.page.count())
	assert.Empty(t, h.req.syncRequests())
}

func TestCloseStopsPendingTimers(t *testing.T) {
	h := newHarness(t, casesPage(wpRow), func(o *Options) { o.AutoSyncHeadStart = time.Hour })

	h.o.ScheduleAutoSync()
	h.o.ScheduleAutoSync()
	assert.Equal(t, 2, h.o.Pending())

	h.o.Close()
	assert.Equal(t, 0, h.o.Pending())

	h.o.ScheduleAutoSync()
	assert.Equal(t, 0, h.o.Pending())
	assert.Equal(t, int32(0), h.page.count())
}

func TestSyncRecoversFromPanic(t *testing.T) {
	h := newHarness(t, casesPage(wpRow))
	h.o.deps.Verifier = panicVerifier{}

	res, err := h.o.Sync(context.Background(), Request{})
	require.ErrorIs(t, err, ErrPanic)
	assert.Equal(t, StateFailed, res.State)
	assert.False(t, h.o.InProgress())
	assert.Equal(t, MsgSyncFailed, h.lastNotification().Message)
	assert.Equal(t, database.RunFailed, h.runs.last().Status)
}

type panicVerifier struct{}

func (panicVerifier) Verify(context.Context, models.AdvocateIdentity) (identity.Verification, error) {
	panic("boom")
}
