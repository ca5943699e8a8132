package sitemap

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitemapgen/internal/model"
)

// TestWriterWrite tests single urlset output.
func TestWriterWrite(t *testing.T) {
	t.Parallel()

	t.Run("writes loc and lastmod entries", func(t *testing.T) {
		t.Parallel()

		lastMod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		records := []model.URLRecord{
			{URL: "https://example.com/a", LastMod: &lastMod},
			{URL: "https://example.com/b"},
		}

		var buf bytes.Buffer
		if err := NewWriter().Write(&buf, records); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`) {
			t.Errorf("missing urlset namespace: %s", out)
		}
		if !strings.Contains(out, "<loc>https://example.com/a</loc>") {
			t.Errorf("missing loc: %s", out)
		}
		if !strings.Contains(out, "<lastmod>2024-05-01T12:00:00Z</lastmod>") {
			t.Errorf("missing lastmod: %s", out)
		}
		// The record without lastmod must not emit an empty element.
		if strings.Contains(out, "<lastmod></lastmod>") {
			t.Errorf("empty lastmod emitted: %s", out)
		}
	})

	t.Run("sorts alphabetically when enabled", func(t *testing.T) {
		t.Parallel()

		records := []model.URLRecord{
			{URL: "https://example.com/z"},
			{URL: "https://example.com/a"},
		}

		var buf bytes.Buffer
		if err := NewWriter(WithSort(true)).Write(&buf, records); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		out := buf.String()
		if strings.Index(out, "/a</loc>") > strings.Index(out, "/z</loc>") {
			t.Errorf("entries not sorted: %s", out)
		}
	})

	t.Run("keeps discovery order when sorting is off", func(t *testing.T) {
		t.Parallel()

		records := []model.URLRecord{
			{URL: "https://example.com/z"},
			{URL: "https://example.com/a"},
		}

		var buf bytes.Buffer
		if err := NewWriter().Write(&buf, records); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		out := buf.String()
		if strings.Index(out, "/z</loc>") > strings.Index(out, "/a</loc>") {
			t.Errorf("order changed without sorting: %s", out)
		}
	})

	t.Run("emits image entries when enabled", func(t *testing.T) {
		t.Parallel()

		records := []model.URLRecord{
			{URL: "https://example.com/a", Images: []string{"https://example.com/pic.png"}},
		}

		var buf bytes.Buffer
		if err := NewWriter(WithImages(true)).Write(&buf, records); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, `xmlns:image="http://www.google.com/schemas/sitemap-image/1.1"`) {
			t.Errorf("missing image namespace: %s", out)
		}
		if !strings.Contains(out, "<image:loc>https://example.com/pic.png</image:loc>") {
			t.Errorf("missing image loc: %s", out)
		}

		// Without the option the namespace and entries stay out.
		buf.Reset()
		if err := NewWriter().Write(&buf, records); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if strings.Contains(buf.String(), "image:loc") {
			t.Errorf("image entries emitted without the option: %s", buf.String())
		}
	})
}

// TestWriteIndex tests index-mode splitting.
func TestWriteIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	indexPath := filepath.Join(dir, "sitemap.xml")

	records := []model.URLRecord{
		{URL: "https://example.com/1"},
		{URL: "https://example.com/2"},
		{URL: "https://example.com/3"},
		{URL: "https://example.com/4"},
		{URL: "https://example.com/5"},
	}

	w := NewWriter(WithMaxPerFile(2))
	children, err := w.WriteIndex(indexPath, "https://example.com", records)
	if err != nil {
		t.Fatalf("write index failed: %v", err)
	}

	if len(children) != 3 {
		t.Fatalf("expected 3 child files for 5 URLs at 2 per file, got %v", children)
	}
	if children[0] != "sitemap-1.xml" || children[2] != "sitemap-3.xml" {
		t.Errorf("unexpected child names: %v", children)
	}

	// Index file references every child by URL.
	idx, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatalf("failed to read index: %v", err)
	}
	if !strings.Contains(string(idx), "<sitemapindex") {
		t.Errorf("index root missing: %s", idx)
	}
	for _, name := range children {
		if !strings.Contains(string(idx), "https://example.com/"+name) {
			t.Errorf("index missing child %s: %s", name, idx)
		}
	}

	// Children together hold every URL exactly once.
	total := 0
	for _, name := range children {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("failed to read child %s: %v", name, err)
		}
		total += strings.Count(string(data), "<loc>")
	}
	if total != len(records) {
		t.Errorf("children hold %d locs, want %d", total, len(records))
	}
}

// TestCountURLs tests counting URLs in previously written sitemaps.
func TestCountURLs(t *testing.T) {
	t.Parallel()

	t.Run("counts a plain urlset", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "sitemap.xml")
		records := []model.URLRecord{
			{URL: "https://example.com/a"},
			{URL: "https://example.com/b"},
		}
		if err := NewWriter().WriteFile(path, records); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		n, err := CountURLs(path)
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if n != 2 {
			t.Errorf("count = %d, want 2", n)
		}
	})

	t.Run("recurses through an index", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		indexPath := filepath.Join(dir, "sitemap.xml")
		records := []model.URLRecord{
			{URL: "https://example.com/1"},
			{URL: "https://example.com/2"},
			{URL: "https://example.com/3"},
		}
		if _, err := NewWriter(WithMaxPerFile(2)).WriteIndex(indexPath, "https://example.com", records); err != nil {
			t.Fatalf("write index failed: %v", err)
		}

		n, err := CountURLs(indexPath)
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if n != 3 {
			t.Errorf("count = %d, want 3", n)
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		t.Parallel()

		if _, err := CountURLs(filepath.Join(t.TempDir(), "nope.xml")); err == nil {
			t.Error("missing file should fail")
		}
	})
}
