package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/sitemapgen/internal/config"
	"github.com/nao1215/sitemapgen/internal/database"
	"github.com/nao1215/sitemapgen/internal/log"
	"github.com/nao1215/sitemapgen/internal/pipeline"
	"github.com/nao1215/sitemapgen/internal/report"
	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [domain]",
		Short: "Crawl a website and write its sitemap",
		Long: `Generate crawls the given domain, collects every in-scope URL, and
writes the result as sitemap XML.

Examples:
  # Crawl a site and print the sitemap to stdout
  sitemapgen generate https://example.com

  # Write to a file with 4 concurrent workers
  sitemapgen generate https://example.com -o sitemap.xml -n 4

  # Obey robots.txt and skip binary files
  sitemapgen generate https://example.com --parserobots --skipext pdf --skipext zip

  # Expand an existing sitemap instead of crawling HTML
  sitemapgen generate https://example.com --sitemap-url https://example.com/sitemap.xml --sitemap-only

  # Crawl every site listed in a configuration file
  sitemapgen generate --config sites.yml

Configuration file (sites.yml) example:
  sites:
    - domain: https://blog.example.com
      output: blog-sitemap.xml
      exclude:
        - "action=edit"
    - domain: https://docs.example.com
      output: docs-sitemap.xml
      parserobots: true`,
		Args: cobra.MaximumNArgs(1),
		RunE: runGenerateCmd,
	}

	// Crawl behavior flags
	cmd.Flags().StringSliceP("skipext", "s", nil,
		"Path extension to skip (repeatable, without the dot)")
	cmd.Flags().StringSliceP("exclude", "x", nil,
		"Regular expression; matching URLs are excluded (repeatable)")
	cmd.Flags().StringSliceP("drop", "d", nil,
		"Regular expression; matches are removed from URLs (repeatable)")
	cmd.Flags().BoolP("parserobots", "r", false,
		"Fetch and obey the target's robots.txt")
	cmd.Flags().BoolP("images", "i", false,
		"Collect image references into the sitemap")
	cmd.Flags().StringSlice("sitemap-url", nil,
		"Existing sitemap or sitemap-index URL to expand (repeatable)")
	cmd.Flags().Bool("sitemap-only", false,
		"Only expand sitemap URLs, never crawl HTML pages")

	// HTTP flags
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("robots-user-agent", config.DefaultRobotsUserAgent,
		"robots.txt group to obey")
	cmd.Flags().String("auth-user", "", "HTTP basic auth user name")
	cmd.Flags().String("auth-pass", "", "HTTP basic auth password")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().Float64("rps", 0,
		"Maximum requests per second across all workers (0 = unlimited)")
	cmd.Flags().IntP("num-workers", "n", config.DefaultMaxWorkers,
		"Number of concurrent crawl workers")

	// Output flags
	cmd.Flags().StringP("output", "o", "",
		"Sitemap output file path (default: stdout)")
	cmd.Flags().Bool("as-index", false,
		"Write a sitemap index with numbered child files (requires --output)")
	cmd.Flags().Bool("no-sort", false,
		"Keep discovery order instead of sorting URLs alphabetically")

	// Report and guard flags
	cmd.Flags().Bool("report", false,
		"Print a crawl statistics report after the run")
	cmd.Flags().BoolP("markdown", "m", false,
		"Render the crawl report as Markdown (implies --report)")
	cmd.Flags().Int("max-url-diff", 0,
		"Abort when the URL count deviates from the previous run by more than this percentage (0 = disabled)")

	// Batch and configuration file
	cmd.Flags().IntP("batch", "b", 1,
		"Number of sites crawled concurrently in config-file mode")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitemapgen.yml in current or home directory)")

	return cmd
}

// runGenerateCmd executes the generate command.
func runGenerateCmd(cmd *cobra.Command, args []string) error {
	base, err := buildBaseConfig(cmd, args)
	if err != nil {
		return err
	}

	configs, err := resolveSiteConfigs(cmd, base)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error for %q: %w", cfg.Domain, err)
		}
	}

	logger := log.NewLogger(os.Stderr, base.Verbose, base.Debug)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	batch, err := cmd.Flags().GetInt("batch")
	if err != nil {
		return err
	}
	textReport, err := cmd.Flags().GetBool("report")
	if err != nil {
		return err
	}
	markdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	return runGenerate(ctx, configs, batch, textReport, markdown, logger)
}

// buildBaseConfig creates a Config from cobra command flags. The
// positional argument, when present, becomes the domain.
func buildBaseConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	if len(args) > 0 {
		cfg.Domain = args[0]
	}

	if cfg.SkipExtensions, err = cmd.Flags().GetStringSlice("skipext"); err != nil {
		return nil, err
	}
	if cfg.ExcludePatterns, err = cmd.Flags().GetStringSlice("exclude"); err != nil {
		return nil, err
	}
	if cfg.DropPatterns, err = cmd.Flags().GetStringSlice("drop"); err != nil {
		return nil, err
	}
	if cfg.ParseRobots, err = cmd.Flags().GetBool("parserobots"); err != nil {
		return nil, err
	}
	if cfg.Images, err = cmd.Flags().GetBool("images"); err != nil {
		return nil, err
	}
	if cfg.SitemapURLs, err = cmd.Flags().GetStringSlice("sitemap-url"); err != nil {
		return nil, err
	}
	if cfg.SitemapOnly, err = cmd.Flags().GetBool("sitemap-only"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.RobotsUserAgent, err = cmd.Flags().GetString("robots-user-agent"); err != nil {
		return nil, err
	}
	if cfg.AuthUser, err = cmd.Flags().GetString("auth-user"); err != nil {
		return nil, err
	}
	if cfg.AuthPass, err = cmd.Flags().GetString("auth-pass"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = cmd.Flags().GetFloat64("rps"); err != nil {
		return nil, err
	}
	if cfg.MaxWorkers, err = cmd.Flags().GetInt("num-workers"); err != nil {
		return nil, err
	}
	if cfg.Output, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.AsIndex, err = cmd.Flags().GetBool("as-index"); err != nil {
		return nil, err
	}
	noSort, err := cmd.Flags().GetBool("no-sort")
	if err != nil {
		return nil, err
	}
	cfg.SortAlphabetically = !noSort
	if cfg.Report, err = cmd.Flags().GetBool("report"); err != nil {
		return nil, err
	}
	markdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	if markdown {
		cfg.Report = true
	}
	if cfg.MaxURLDiff, err = cmd.Flags().GetInt("max-url-diff"); err != nil {
		return nil, err
	}

	// Run history always goes to the XDG data directory.
	cfg.HistoryDir = config.XDGDataDir()

	cfg.Verbose = getPersistentBoolFlag(cmd, "verbose")
	cfg.Debug = getPersistentBoolFlag(cmd, "debug")

	return cfg, nil
}

// getPersistentBoolFlag reads a persistent flag declared on the root
// command, falling back to false when the command has no parent.
func getPersistentBoolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// resolveSiteConfigs expands the configuration file, when present,
// into per-site configs layered over the flag-provided base. Without a
// config file the base itself is the single site.
func resolveSiteConfigs(cmd *cobra.Command, base *config.Config) ([]*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	explicit := configPath != ""
	found := config.FindConfigFile(configPath)
	if found == "" {
		if explicit {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		if base.Domain == "" {
			return nil, errors.New("no domain provided (pass a domain argument or use --config)")
		}
		return []*config.Config{base}, nil
	}

	// A found default-location file is only used when no domain was
	// given on the command line; an explicit argument wins.
	if !explicit && base.Domain != "" {
		return []*config.Config{base}, nil
	}

	file, err := config.LoadConfigFile(found)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
	}
	if len(file.Sites) == 0 {
		return nil, fmt.Errorf("configuration file %s lists no sites", found)
	}

	configs := make([]*config.Config, 0, len(file.Sites))
	for _, site := range file.Sites {
		configs = append(configs, site.Resolve(base))
	}
	return configs, nil
}

// runGenerate crawls all resolved sites through the pipeline.
func runGenerate(ctx context.Context, configs []*config.Config, batch int, textReport, markdown bool, logger *slog.Logger) error {
	db, err := database.Open(configs[0].HistoryDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	// Reports go to stderr so a stdout sitemap stays clean. Asking for
	// both formats fans out through a MultiWriter.
	var reportWriter report.Writer
	if configs[0].Report {
		var writers []report.Writer
		if textReport {
			writers = append(writers, report.NewTextWriter(os.Stderr))
		}
		if markdown {
			writers = append(writers, report.NewMarkdownWriter(os.Stderr))
		}
		reportWriter = report.NewMultiWriter(writers...)
	}

	factory := func() *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddStep(pipeline.NewCrawlStep(logger, nil))
		p.AddStep(pipeline.NewThresholdStep(db, logger))
		p.AddStep(pipeline.NewWriteStep(logger))
		p.AddStep(pipeline.NewHistoryStep(db))
		if reportWriter != nil {
			p.AddStep(pipeline.NewReportStep(reportWriter))
		}
		return p
	}

	startTime := time.Now()

	var runs []*pipeline.Run
	if len(configs) == 1 {
		run := pipeline.NewRun(configs[0])
		if err := factory().Execute(ctx, run); err != nil {
			run.Err = err
		}
		runs = []*pipeline.Run{run}
	} else {
		bp := pipeline.NewBatchProcessor(factory,
			pipeline.WithConcurrency(batch),
			pipeline.WithBatchLogger(logger),
		)
		var batchErr error
		runs, batchErr = bp.ProcessBatch(ctx, configs)
		if batchErr != nil {
			return batchErr
		}
	}

	var failed int
	for _, run := range runs {
		if run == nil {
			continue
		}
		if run.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "generation failed for %s: %v\n", run.Config.Domain, run.Err)
		}
	}

	logger.Info("generation finished",
		"sites", len(configs),
		"failed", failed,
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	if failed == len(runs) && len(runs) > 0 {
		return runs[0].Err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sites failed", failed, len(runs))
	}
	return nil
}
