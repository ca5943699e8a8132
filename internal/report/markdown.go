package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeCounters(md, report)
	w.writeStatusCodes(md, report)
	w.writeMarked(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	md.H1("Sitemap Crawl Report")
	md.PlainText("")

	rows := [][]string{
		{"Domain", "`" + report.Summary.Domain + "`"},
		{"Finished", report.Summary.FinishedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", report.Summary.Duration.Round(time.Millisecond).String()},
		{"URLs in sitemap", strconv.Itoa(report.Summary.URLCount)},
	}
	if report.Output != "" {
		rows = append(rows, []string{"Output", "`" + report.Output + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeCounters writes the crawl counter summary section.
func (w *MarkdownWriter) writeCounters(md *markdown.Markdown, report *Report) {
	md.H2("Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Count"},
		Rows: [][]string{
			{"URLs found", strconv.Itoa(report.Stats.URLsFound)},
			{"Pages crawled", strconv.Itoa(report.Stats.PagesCrawled)},
			{"Robots blocked", strconv.Itoa(report.Stats.RobotsBlocked)},
			{"Filtered out", strconv.Itoa(report.Stats.Filtered)},
			{"Fetch errors", strconv.Itoa(report.Stats.FetchErrors)},
			{"Parse errors", strconv.Itoa(report.Stats.ParseErrors)},
		},
	})
	md.PlainText("")

	switch {
	case report.Stats.FetchErrors > 0:
		md.Warningf(
			"%d URL(s) could not be fetched. The sitemap may be incomplete.",
			report.Stats.FetchErrors,
		)
	case report.Stats.RobotsBlocked > 0:
		md.Notef(
			"%d URL(s) were excluded by robots.txt rules.",
			report.Stats.RobotsBlocked,
		)
	default:
		md.Tip("The crawl completed without fetch errors.")
	}
	md.PlainText("")
}

// writeStatusCodes writes the HTTP status histogram with a pie chart.
func (w *MarkdownWriter) writeStatusCodes(md *markdown.Markdown, report *Report) {
	md.H2("HTTP Status Codes")
	md.PlainText("")

	if len(report.Stats.StatusCodes) == 0 {
		md.PlainText("No responses recorded.")
		md.PlainText("")
		return
	}

	codes := sortedCodes(report.Stats.StatusCodes)
	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, []string{
			strconv.Itoa(code),
			strconv.Itoa(report.Stats.StatusCodes[code]),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("HTTP Status Distribution"),
		piechart.WithShowData(true),
	)
	for _, code := range codes {
		chart.LabelAndIntValue(strconv.Itoa(code), uint64(report.Stats.StatusCodes[code])) //nolint:gosec // Counts are non-negative
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeMarked writes the URLs that returned error statuses.
func (w *MarkdownWriter) writeMarked(md *markdown.Markdown, report *Report) {
	if len(report.Stats.Marked) == 0 {
		return
	}

	md.H2("URLs with Error Responses")
	md.PlainText("")

	for _, code := range sortedMarkedCodes(report.Stats.Marked) {
		md.H3f("Status %d", code)
		md.PlainText("")
		md.BulletList(report.Stats.Marked[code]...)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitemapgen](https://github.com/nao1215/sitemapgen)*")
}
