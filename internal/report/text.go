package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// TextWriter outputs reports as plain text suitable for terminals
// and log files.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the full report in plain text format.
func (w *TextWriter) Write(report *Report) (int, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Crawl report for %s\n", report.Summary.Domain)
	fmt.Fprintf(&b, "  Finished:        %s\n", report.Summary.FinishedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "  Duration:        %s\n", report.Summary.Duration.Round(time.Millisecond))
	if report.Output != "" {
		fmt.Fprintf(&b, "  Output:          %s\n", report.Output)
	}
	fmt.Fprintf(&b, "  URLs in sitemap: %d\n", report.Summary.URLCount)
	fmt.Fprintf(&b, "  URLs found:      %d\n", report.Stats.URLsFound)
	fmt.Fprintf(&b, "  Pages crawled:   %d\n", report.Stats.PagesCrawled)
	fmt.Fprintf(&b, "  Robots blocked:  %d\n", report.Stats.RobotsBlocked)
	fmt.Fprintf(&b, "  Filtered out:    %d\n", report.Stats.Filtered)
	fmt.Fprintf(&b, "  Fetch errors:    %d\n", report.Stats.FetchErrors)
	fmt.Fprintf(&b, "  Parse errors:    %d\n", report.Stats.ParseErrors)

	if len(report.Stats.StatusCodes) > 0 {
		b.WriteString("  Status codes:\n")
		for _, code := range sortedCodes(report.Stats.StatusCodes) {
			fmt.Fprintf(&b, "    %d: %d\n", code, report.Stats.StatusCodes[code])
		}
	}

	for _, code := range sortedMarkedCodes(report.Stats.Marked) {
		fmt.Fprintf(&b, "  URLs with status %d:\n", code)
		for _, u := range report.Stats.Marked[code] {
			fmt.Fprintf(&b, "    %s\n", u)
		}
	}

	return io.WriteString(w.output, b.String())
}

func sortedCodes(m map[int]int) []int {
	codes := make([]int, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

func sortedMarkedCodes(m map[int][]string) []int {
	codes := make([]int, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}
