package main

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/enrich"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/extract"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
	"github.com/spf13/cobra"
)

var (
	parseURL       string
	parseUserAgent string
)

var parseCmd = &cobra.Command{
	Use:   "parse <page.html>",
	Short: "Extract the advocate and cases from a saved portal page",
	Long: `Parse reads a saved "My Cases" page and prints the advocate identity,
the parsed cases and the listing endpoint as JSON. Nothing is sent to the
backend.

Example:
  lawmate-agent parse mycases.html --url https://efiling.highcourt.kerala.gov.in/mycases`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseURL, "url", "", "url the page was saved from (default: portal cases page)")
	parseCmd.Flags().StringVar(&parseUserAgent, "user-agent", "", "user agent recorded with the identity")
}

// parseOutput is what the parse command prints.
type parseOutput struct {
	PageURL  string                   `json:"page_url"`
	Identity *models.AdvocateIdentity `json:"identity"`
	Cases    []models.CaseRecord      `json:"cases"`
	Endpoint string                   `json:"listing_endpoint,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}

	pageURL := parseURL
	if pageURL == "" {
		pageURL = cfg.PortalBaseURL + cfg.PortalCasesPath
	}

	doc, err := extract.ParseDocument(string(raw))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	out := parseOutput{
		PageURL:  pageURL,
		Identity: extract.NewIdentityExtractor(log, nil).Extract(doc, pageURL, parseUserAgent),
		Cases:    extract.NewTableExtractor(log, extract.TableOptions{DefaultPartyRole: cfg.DefaultPartyRole}).Extract(doc, pageURL),
	}
	if endpoint, err := enrich.ResolveEndpoint(doc, pageURL); err == nil {
		out.Endpoint = endpoint
	} else {
		log.Debug("No listing endpoint", "error", err)
	}

	data, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
