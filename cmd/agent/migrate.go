package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the sync run database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Initialize(cfg.DatabasePath)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		log.Info("Database migrations completed successfully", "path", cfg.DatabasePath)
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sync runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of runs to show (max 100)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	runs, total, err := database.NewRunStore(db).List(cmd.Context(), 1, historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tTRIGGER\tSTATUS\tADVOCATE\tCASES\tENRICHED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%dms\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Trigger, r.Status, r.AdvocateName, r.CaseCount, r.EnrichedCount, r.DurationMs)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d runs\n", len(runs), total)
	return nil
}
