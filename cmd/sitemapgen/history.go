package main

import (
	"fmt"
	"time"

	"github.com/nao1215/sitemapgen/internal/config"
	"github.com/nao1215/sitemapgen/internal/database"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <domain>",
		Short: "List recorded crawl runs for a domain",
		Long: `History lists the crawl runs recorded for a domain, newest first.

Each generate run stores its URL count and duration; the --max-url-diff
guard compares new crawls against the most recent entry shown here.

Examples:
  # Show the last 10 runs
  sitemapgen history https://example.com

  # Show every recorded run
  sitemapgen history --limit 0 https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", 10,
		"Maximum number of runs to show (0 = all)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir(), database.Options{
		CreateIfNotExists: false,
		EnableWAL:         false,
	})
	if err != nil {
		return fmt.Errorf("no run history recorded yet: %w", err)
	}
	defer db.Close()

	runs, err := db.Runs(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no runs recorded for %s\n", args[0])
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%-25s %10s %12s\n", "FINISHED", "URLS", "DURATION")
	for _, run := range runs {
		fmt.Fprintf(cmd.OutOrStdout(), "%-25s %10d %12s\n",
			run.FinishedAt.Format("2006-01-02 15:04:05 MST"),
			run.URLCount,
			run.Duration.Round(time.Millisecond),
		)
	}
	return nil
}
