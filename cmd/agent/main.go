// Package main provides the lawmate-agent CLI: the portal sync agent, an
// offline page parser and database maintenance.
package main

import (
	"fmt"
	"os"

	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/config"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	// logLevel is set by the --log-level flag and overrides LOG_LEVEL.
	logLevel string

	cfg *config.Config
	log *logger.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lawmate-agent",
	Short: "LawMate e-filing portal sync agent",
	Long: `lawmate-agent watches the court e-filing portal's "My Cases" page in a
browser session, reads the logged-in advocate and their cases, and hands
them to the LawMate backend.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(historyCmd)
}

// setup loads configuration and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}

	l, err := logger.NewLogger(c.LogLevel, c.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cfg, log = c, l
	return nil
}
