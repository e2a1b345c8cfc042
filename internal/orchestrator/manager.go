package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/channel"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/notify"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/portal"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
)

// Factory builds the orchestrator for a new page session.
type Factory func(generation uint64, isCurrent func(uint64) bool) *Orchestrator

// ManagerOptions configure a Manager.
type ManagerOptions struct {
	AutoSync  bool
	CasesPath string
}

// Manager owns the page session generation. Each navigation retires the
// current orchestrator and builds a fresh one.
type Manager struct {
	factory  Factory
	notifier notify.Notifier
	logger   *logger.Logger
	opts     ManagerOptions

	generation atomic.Uint64
	mu         sync.Mutex
	current    *Orchestrator
}

func NewManager(factory Factory, notifier notify.Notifier, logger *logger.Logger, opts ManagerOptions) *Manager {
	if opts.CasesPath == "" {
		opts.CasesPath = DefaultOptions().CasesPath
	}
	return &Manager{factory: factory, notifier: notifier, logger: logger, opts: opts}
}

func (m *Manager) Generation() uint64 {
	return m.generation.Load()
}

func (m *Manager) isCurrent(gen uint64) bool {
	return m.generation.Load() == gen
}

// Current returns the live orchestrator, or nil before the first navigation.
func (m *Manager) Current() *Orchestrator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Navigate starts a new page session for url. Initialization failures are
// reported once to the user and never escape.
func (m *Manager) Navigate(url string) (o *Orchestrator, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Page session failed to initialize", "url", url, "panic", r)
			if m.notifier != nil {
				m.notifier.Notify(notify.LevelError, MsgInitFailed, true)
			}
			o, err = nil, fmt.Errorf("initialize page session: %v", r)
		}
	}()

	m.mu.Lock()
	gen := m.generation.Add(1)
	old := m.current
	m.current = nil
	m.mu.Unlock()

	// the old session stops before the new one can schedule anything
	if old != nil {
		old.Close()
	}

	next := m.factory(gen, m.isCurrent)

	m.mu.Lock()
	if m.generation.Load() != gen {
		// a newer navigation won the race
		m.mu.Unlock()
		next.Close()
		return nil, ErrClosed
	}
	m.current = next
	m.mu.Unlock()

	m.logger.Info("Page session started", "generation", gen, "url", url)
	if m.opts.AutoSync && strings.Contains(strings.ToLower(url), strings.ToLower(m.opts.CasesPath)) {
		next.ScheduleAutoSync()
	}
	return next, nil
}

// Sync runs a sync on the live session.
func (m *Manager) Sync(ctx context.Context, req Request) (*Result, error) {
	o := m.Current()
	if o == nil {
		return nil, ErrClosed
	}
	return o.Sync(ctx, req)
}

// Watch follows the page's url and starts a session per navigation.
func (m *Manager) Watch(ctx context.Context, page portal.Page, interval time.Duration) {
	portal.Watch(ctx, page, interval, m.logger, func(url string) {
		_, _ = m.Navigate(url)
	})
}

// Dispatch hands an inbound message to the live session.
func (m *Manager) Dispatch(env channel.Envelope) error {
	o := m.Current()
	if o == nil {
		m.logger.Warn("Dropping message, no page session", "action", env.Action)
		return ErrClosed
	}
	return o.HandleMessage(env)
}

// Listen dispatches every message from sub until ctx ends.
func (m *Manager) Listen(ctx context.Context, sub channel.Subscriber) error {
	ch, err := sub.Subscribe(ctx)
	if err != nil {
		return err
	}
	for env := range ch {
		if err := m.Dispatch(env); err != nil && !errors.Is(err, ErrClosed) {
			m.logger.Warn("Failed to handle message", "action", env.Action, "error", err)
		}
	}
	return ctx.Err()
}

// Close retires the live session.
func (m *Manager) Close() {
	m.mu.Lock()
	old := m.current
	m.current = nil
	m.generation.Add(1)
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
}
