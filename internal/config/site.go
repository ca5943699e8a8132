package config

// SiteConfig holds per-site settings loaded from the configuration
// file. Each entry produces one crawl run; unset fields inherit from
// the CLI flags, and list-valued options are additive across sources.
type SiteConfig struct {
	// Domain is the crawl target. Required for every entry.
	Domain string `yaml:"domain" json:"domain"`

	// SitemapURLs are existing sitemap documents to expand.
	SitemapURLs []string `yaml:"sitemapUrls,omitempty" json:"sitemap_urls,omitempty"`

	// SitemapOnly skips HTML crawling for this site.
	SitemapOnly *bool `yaml:"sitemapOnly,omitempty" json:"sitemap_only,omitempty"`

	// SkipExtensions are appended to the flag-provided skip list.
	SkipExtensions []string `yaml:"skipext,omitempty" json:"skipext,omitempty"`

	// ExcludePatterns are appended to the flag-provided exclude list.
	ExcludePatterns []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`

	// DropPatterns are appended to the flag-provided drop list.
	DropPatterns []string `yaml:"drop,omitempty" json:"drop,omitempty"`

	// Images overrides image collection for this site.
	Images *bool `yaml:"images,omitempty" json:"images,omitempty"`

	// ParseRobots overrides robots.txt handling for this site.
	ParseRobots *bool `yaml:"parserobots,omitempty" json:"parserobots,omitempty"`

	// Output overrides the sitemap output path for this site.
	Output string `yaml:"output,omitempty" json:"output,omitempty"`

	// AsIndex overrides index splitting for this site.
	AsIndex *bool `yaml:"asIndex,omitempty" json:"as_index,omitempty"`

	// MaxURLDiff overrides the URL-diff guard for this site.
	MaxURLDiff *int `yaml:"maxUrlDiff,omitempty" json:"max_url_diff,omitempty"`
}

// File represents the sitemapgen configuration file: a list of sites
// to generate sitemaps for in one invocation.
type File struct {
	// Sites holds one entry per crawl target.
	Sites []SiteConfig `yaml:"sites" json:"sites"`
}

// Resolve merges a site entry over a base configuration built from CLI
// flags. Scalar fields override the base only when set; list fields
// are appended so flag-provided and file-provided filters both apply.
func (sc SiteConfig) Resolve(base *Config) *Config {
	cfg := *base // shallow copy; slices below are re-sliced, never mutated

	if sc.Domain != "" {
		cfg.Domain = sc.Domain
	}
	if len(sc.SitemapURLs) > 0 {
		cfg.SitemapURLs = append(append([]string{}, base.SitemapURLs...), sc.SitemapURLs...)
	}
	if sc.SitemapOnly != nil {
		cfg.SitemapOnly = *sc.SitemapOnly
	}
	if len(sc.SkipExtensions) > 0 {
		cfg.SkipExtensions = append(append([]string{}, base.SkipExtensions...), sc.SkipExtensions...)
	}
	if len(sc.ExcludePatterns) > 0 {
		cfg.ExcludePatterns = append(append([]string{}, base.ExcludePatterns...), sc.ExcludePatterns...)
	}
	if len(sc.DropPatterns) > 0 {
		cfg.DropPatterns = append(append([]string{}, base.DropPatterns...), sc.DropPatterns...)
	}
	if sc.Images != nil {
		cfg.Images = *sc.Images
	}
	if sc.ParseRobots != nil {
		cfg.ParseRobots = *sc.ParseRobots
	}
	if sc.Output != "" {
		cfg.Output = sc.Output
	}
	if sc.AsIndex != nil {
		cfg.AsIndex = *sc.AsIndex
	}
	if sc.MaxURLDiff != nil {
		cfg.MaxURLDiff = *sc.MaxURLDiff
	}

	return &cfg
}
