package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/api"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/channel"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/database"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/enrich"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/extract"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/identity"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/notify"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/orchestrator"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/portal"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/server"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/status"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const notificationBacklog = 100

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the sync agent and its control API",
	Long: `Run opens (or attaches to) the browser session on the portal, follows
navigation, syncs the "My Cases" page on request or automatically, and
serves the local control API until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	runs := database.NewRunStore(db)

	board := status.NewBoard(cfg.CacheSize, cfg.CacheTTL)
	feed := notify.NewFeed(notificationBacklog, log)

	requester := channel.NewHTTPRequester(log, channel.HTTPOptions{
		BaseURL:  cfg.BackendURL,
		Username: cfg.BackendUsername,
		Password: cfg.BackendPassword,
		Timeout:  cfg.BackendTimeout,
	})
	if cfg.BackendUsername != "" {
		if err := requester.Login(ctx); err != nil {
			log.Warn("Backend login failed, retrying on first request", "error", err)
		}
	}

	browser, err := portal.NewBrowser(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.Error("Failed to close browser", "error", err)
		}
	}()
	page, err := browser.Open(ctx)
	if err != nil {
		return err
	}

	deps := orchestrator.Deps{
		Page:       page,
		Tables:     extract.NewTableExtractor(log, extract.TableOptions{DefaultPartyRole: cfg.DefaultPartyRole}),
		Identities: extract.NewIdentityExtractor(log, nil),
		Verifier:   identity.NewVerifier(requester, log),
		Requester:  requester,
		Board:      board,
		Notifier:   feed,
		Runs:       runs,
		Logger:     log,
	}
	if cfg.EnrichEnabled {
		client := enrich.NewPortalClient(enrich.ClientOptions{
			BaseURL:    cfg.PortalBaseURL,
			DetailPath: cfg.PortalDetailPath,
			CSRFCookie: cfg.PortalCSRFCookie,
			UserAgent:  cfg.UserAgent,
			Timeout:    cfg.DetailTimeout,
		})
		deps.Cookies = client
		deps.Enricher = enrich.NewEnricher(client, log, enrich.Options{
			PageSize:      cfg.EnrichPageSize,
			MaxPages:      cfg.EnrichMaxPages,
			Concurrency:   cfg.DetailConcurrency,
			DetailTimeout: cfg.DetailTimeout,
		})
	}

	opts := orchestrator.OptionsFromConfig(cfg)
	manager := orchestrator.NewManager(func(gen uint64, isCurrent func(uint64) bool) *orchestrator.Orchestrator {
		return orchestrator.New(deps, opts, gen, isCurrent)
	}, feed, log, orchestrator.ManagerOptions{AutoSync: cfg.AutoSync, CasesPath: cfg.PortalCasesPath})
	defer manager.Close()

	inbox := channel.NewInbox(0)
	var stream channel.Subscriber
	if cfg.BackendWSURL != "" {
		stream = channel.NewStreamSubscriber(log, cfg.BackendWSURL, requester.AuthHeader)
	}

	srv := server.New(cfg, api.NewHandlers(manager, inbox, board, feed, runs, log), log)

	log.Info("Starting LawMate agent",
		"portal", cfg.PortalBaseURL,
		"backend", cfg.BackendURL,
		"auto_sync", cfg.AutoSync,
		"enrich", cfg.EnrichEnabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		manager.Watch(gctx, page, cfg.NavigationInterval)
		return nil
	})
	g.Go(func() error {
		return listen(gctx, manager, inbox, stream)
	})
	g.Go(func() error {
		err := srv.Run(gctx)
		// the server returning ends the agent
		stop()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("LawMate agent stopped")
	return nil
}

// listen feeds backend messages to the manager. Without a reachable stream
// the agent still takes messages pushed through the control API.
func listen(ctx context.Context, manager *orchestrator.Manager, inbox *channel.Inbox, stream channel.Subscriber) error {
	if stream != nil {
		err := manager.Listen(ctx, channel.Multi{stream, inbox})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Backend stream unavailable, using control API messages only", "error", err)
	}
	return manager.Listen(ctx, inbox)
}
