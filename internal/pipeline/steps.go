package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nao1215/sitemapgen/internal/crawler"
	"github.com/nao1215/sitemapgen/internal/database"
	"github.com/nao1215/sitemapgen/internal/model"
	"github.com/nao1215/sitemapgen/internal/report"
	"github.com/nao1215/sitemapgen/internal/sitemap"
)

// URLDiffError reports that a fresh crawl's URL count deviates from
// the previous run by more than the configured percentage. The sitemap
// is not written when this happens, so a broken crawl cannot silently
// replace a good sitemap.
type URLDiffError struct {
	// Previous is the URL count of the last recorded run.
	Previous int
	// Current is the URL count of this crawl.
	Current int
	// DiffPercent is the observed deviation in percent.
	DiffPercent float64
	// Limit is the configured maximum deviation in percent.
	Limit int
}

// Error implements the error interface.
func (e *URLDiffError) Error() string {
	return fmt.Sprintf(
		"url count changed by %.1f%% (previous %d, current %d), exceeds limit of %d%%",
		e.DiffPercent, e.Previous, e.Current, e.Limit,
	)
}

// CrawlStep runs the spider and stores its records, counters, and
// summary on the run.
type CrawlStep struct {
	logger *slog.Logger
	client *http.Client
}

// NewCrawlStep creates a CrawlStep. The client may be nil, in which
// case the spider builds its own from the configured timeout.
func NewCrawlStep(logger *slog.Logger, client *http.Client) *CrawlStep {
	return &CrawlStep{logger: logger, client: client}
}

// Name returns the step's name for logging purposes.
func (s *CrawlStep) Name() string { return "crawl" }

// Do executes the crawl and populates the run.
func (s *CrawlStep) Do(ctx context.Context, run *Run) error {
	opts := []crawler.SpiderOption{}
	if s.logger != nil {
		opts = append(opts, crawler.WithLogger(s.logger))
	}
	if s.client != nil {
		opts = append(opts, crawler.WithHTTPClient(s.client))
	}

	spider, err := crawler.NewSpider(run.Config, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	records, err := spider.Crawl(ctx)
	run.Records = records
	run.Stats = spider.Stats()
	run.Summary = model.RunSummary{
		Domain:     run.Config.Domain,
		URLCount:   len(records),
		Duration:   time.Since(start),
		FinishedAt: time.Now().UTC(),
	}
	return err
}

// ThresholdStep compares the crawl's URL count against the previous
// run recorded in the history database. A deviation above the
// configured percentage fails the pipeline before the sitemap is
// written.
type ThresholdStep struct {
	db     *database.HistoryDB
	logger *slog.Logger
}

// NewThresholdStep creates a ThresholdStep backed by db.
func NewThresholdStep(db *database.HistoryDB, logger *slog.Logger) *ThresholdStep {
	return &ThresholdStep{db: db, logger: logger}
}

// Name returns the step's name for logging purposes.
func (s *ThresholdStep) Name() string { return "threshold" }

// Do checks the URL count deviation. A domain with no history always
// passes; there is nothing to compare against on the first run.
func (s *ThresholdStep) Do(ctx context.Context, run *Run) error {
	if run.Config.MaxURLDiff <= 0 {
		return nil
	}

	previous, ok, err := s.db.LatestCount(ctx, run.Config.Domain)
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}
	if !ok {
		previous, ok = s.previousFromSitemap(run.Config.Output)
	}
	if !ok || previous == 0 {
		s.logger.Debug("no previous run to compare against",
			"domain", run.Config.Domain,
		)
		return nil
	}

	current := len(run.Records)
	diff := float64(current-previous) / float64(previous) * 100
	if diff < 0 {
		diff = -diff
	}
	if diff > float64(run.Config.MaxURLDiff) {
		return &URLDiffError{
			Previous:    previous,
			Current:     current,
			DiffPercent: diff,
			Limit:       run.Config.MaxURLDiff,
		}
	}

	s.logger.Debug("url count within threshold",
		"domain", run.Config.Domain,
		"previous", previous,
		"current", current,
		"diff_percent", diff,
	)
	return nil
}

// previousFromSitemap counts the URLs in the sitemap already on disk.
// A domain crawled for the first time on this machine still has a
// baseline when an earlier run left an output file behind.
func (s *ThresholdStep) previousFromSitemap(output string) (int, bool) {
	if output == "" {
		return 0, false
	}
	count, err := sitemap.CountURLs(output)
	if err != nil {
		return 0, false
	}
	s.logger.Debug("using existing sitemap as baseline",
		"output", output,
		"urls", count,
	)
	return count, true
}

// WriteStep renders the collected records as sitemap XML, either to
// the configured output file or to standard output. Index mode splits
// into numbered child files only past the per-file URL limit; below
// it a single urlset is written even when the index was requested.
type WriteStep struct {
	logger *slog.Logger
	stdout *os.File
}

// NewWriteStep creates a WriteStep.
func NewWriteStep(logger *slog.Logger) *WriteStep {
	return &WriteStep{logger: logger, stdout: os.Stdout}
}

// Name returns the step's name for logging purposes.
func (s *WriteStep) Name() string { return "write" }

// Do writes the sitemap.
func (s *WriteStep) Do(_ context.Context, run *Run) error {
	cfg := run.Config
	writer := sitemap.NewWriter(
		sitemap.WithSort(cfg.SortAlphabetically),
		sitemap.WithImages(cfg.Images),
	)

	if cfg.Output == "" {
		return writer.Write(s.stdout, run.Records)
	}

	if cfg.AsIndex && len(run.Records) > sitemap.MaxURLsPerSitemap {
		children, err := writer.WriteIndex(cfg.Output, cfg.Domain, run.Records)
		if err != nil {
			return err
		}
		run.ChildFiles = children
		s.logger.Info("wrote sitemap index",
			"output", cfg.Output,
			"children", len(children),
			"urls", len(run.Records),
		)
		return nil
	}

	if err := writer.WriteFile(cfg.Output, run.Records); err != nil {
		return err
	}
	s.logger.Info("wrote sitemap",
		"output", cfg.Output,
		"urls", len(run.Records),
	)
	return nil
}

// HistoryStep records the finished run in the history database so the
// next run's threshold check has something to compare against.
type HistoryStep struct {
	db *database.HistoryDB
}

// NewHistoryStep creates a HistoryStep backed by db.
func NewHistoryStep(db *database.HistoryDB) *HistoryStep {
	return &HistoryStep{db: db}
}

// Name returns the step's name for logging purposes.
func (s *HistoryStep) Name() string { return "history" }

// Do persists the run summary.
func (s *HistoryStep) Do(ctx context.Context, run *Run) error {
	return s.db.SaveRun(ctx, run.Summary)
}

// ReportStep writes the crawl report to the given destination.
type ReportStep struct {
	writer report.Writer
}

// NewReportStep creates a ReportStep using the given report writer.
func NewReportStep(writer report.Writer) *ReportStep {
	return &ReportStep{writer: writer}
}

// Name returns the step's name for logging purposes.
func (s *ReportStep) Name() string { return "report" }

// Do renders the report.
func (s *ReportStep) Do(_ context.Context, run *Run) error {
	_, err := s.writer.Write(&report.Report{
		Summary: run.Summary,
		Stats:   run.Stats,
		Output:  run.Config.Output,
	})
	return err
}
