package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitemapgen.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemapgen",
		Short: "Generate sitemap.xml by crawling a website",
		Long: `sitemapgen crawls a website and writes the discovered URLs as a
sitemap.xml file following the sitemaps.org protocol.

It can also expand existing sitemap or sitemap-index documents, obey
robots.txt rules, filter URLs by extension and pattern, and split large
outputs into a sitemap index.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable info-level logging")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug-level logging")

	// Add subcommands
	cmd.AddCommand(NewGenerateCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
