package sitemap

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/sitemapgen/internal/model"
)

// MaxURLsPerSitemap is the per-file URL limit from the sitemaps.org
// protocol. A urlset above this limit must be split into multiple
// files referenced by a sitemap index.
const MaxURLsPerSitemap = 50000

const (
	sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"
	imageNamespace   = "http://www.google.com/schemas/sitemap-image/1.1"
)

// Writer renders collected URL records as sitemap XML.
type Writer struct {
	sortAlphabetically bool
	withImages         bool
	maxPerFile         int
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithSort enables alphabetical ordering of URLs in the output.
func WithSort(enabled bool) WriterOption {
	return func(w *Writer) { w.sortAlphabetically = enabled }
}

// WithImages enables image:image entries in the output.
func WithImages(enabled bool) WriterOption {
	return func(w *Writer) { w.withImages = enabled }
}

// WithMaxPerFile overrides the per-file URL limit. Intended for tests;
// production callers should keep the protocol default.
func WithMaxPerFile(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.maxPerFile = n
		}
	}
}

// NewWriter creates a Writer with the given options.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{maxPerFile: MaxURLsPerSitemap}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type xmlImage struct {
	XMLName xml.Name `xml:"image:image"`
	Loc     string   `xml:"image:loc"`
}

type xmlURL struct {
	XMLName xml.Name   `xml:"url"`
	Loc     string     `xml:"loc"`
	LastMod string     `xml:"lastmod,omitempty"`
	Images  []xmlImage `xml:"image:image,omitempty"`
}

type xmlURLSet struct {
	XMLName  xml.Name `xml:"urlset"`
	Xmlns    string   `xml:"xmlns,attr"`
	XmlnsImg string   `xml:"xmlns:image,attr,omitempty"`
	URLs     []xmlURL `xml:"url"`
}

type xmlIndexEntry struct {
	XMLName xml.Name `xml:"sitemap"`
	Loc     string   `xml:"loc"`
}

type xmlIndex struct {
	XMLName  xml.Name        `xml:"sitemapindex"`
	Xmlns    string          `xml:"xmlns,attr"`
	Sitemaps []xmlIndexEntry `xml:"sitemap"`
}

// Write renders the records as a single urlset document.
func (w *Writer) Write(out io.Writer, records []model.URLRecord) error {
	if w.sortAlphabetically {
		model.SortRecords(records)
	}
	return w.writeURLSet(out, records)
}

// WriteFile renders the records to path as a single urlset document.
func (w *Writer) WriteFile(path string, records []model.URLRecord) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create sitemap file: %w", err)
	}
	if err := w.Write(f, records); err != nil {
		_ = f.Close() //nolint:errcheck // Write error takes precedence
		return err
	}
	return f.Close()
}

// WriteIndex splits the records across numbered sitemap files next to
// indexPath and writes a sitemap index referencing them. Child files
// are named after the index file: sitemap.xml produces sitemap-1.xml,
// sitemap-2.xml and so on. baseURL prefixes the loc entries in the
// index, since an index must reference its children by URL.
func (w *Writer) WriteIndex(indexPath, baseURL string, records []model.URLRecord) ([]string, error) {
	if w.sortAlphabetically {
		model.SortRecords(records)
	}

	dir := filepath.Dir(indexPath)
	base := filepath.Base(indexPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".xml"
	}

	var children []string
	for i := 0; i*w.maxPerFile < len(records) || (i == 0 && len(records) == 0); i++ {
		lo := i * w.maxPerFile
		hi := min(lo+w.maxPerFile, len(records))

		name := fmt.Sprintf("%s-%d%s", stem, i+1, ext)
		childPath := filepath.Join(dir, name)

		f, err := os.Create(filepath.Clean(childPath))
		if err != nil {
			return nil, fmt.Errorf("failed to create sitemap file: %w", err)
		}
		if err := w.writeURLSet(f, records[lo:hi]); err != nil {
			_ = f.Close() //nolint:errcheck // Write error takes precedence
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("failed to close sitemap file: %w", err)
		}
		children = append(children, name)
	}

	idx := xmlIndex{Xmlns: sitemapNamespace}
	for _, name := range children {
		idx.Sitemaps = append(idx.Sitemaps, xmlIndexEntry{
			Loc: strings.TrimRight(baseURL, "/") + "/" + name,
		})
	}

	f, err := os.Create(filepath.Clean(indexPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create sitemap index: %w", err)
	}
	if err := writeXML(f, idx); err != nil {
		_ = f.Close() //nolint:errcheck // Write error takes precedence
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close sitemap index: %w", err)
	}
	return children, nil
}

func (w *Writer) writeURLSet(out io.Writer, records []model.URLRecord) error {
	set := xmlURLSet{
		Xmlns: sitemapNamespace,
		URLs:  make([]xmlURL, 0, len(records)),
	}
	if w.withImages {
		set.XmlnsImg = imageNamespace
	}

	for _, rec := range records {
		u := xmlURL{Loc: rec.URL}
		if rec.LastMod != nil {
			u.LastMod = rec.LastMod.Format(time.RFC3339)
		}
		if w.withImages {
			for _, img := range rec.Images {
				u.Images = append(u.Images, xmlImage{Loc: img})
			}
		}
		set.URLs = append(set.URLs, u)
	}
	return writeXML(out, set)
}

func writeXML(out io.Writer, v any) error {
	if _, err := io.WriteString(out, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode sitemap XML: %w", err)
	}
	if _, err := io.WriteString(out, "\n"); err != nil {
		return fmt.Errorf("failed to finalize sitemap XML: %w", err)
	}
	return nil
}
