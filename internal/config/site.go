package config

import (
	"maps"
	"time"
)

// SiteConfig holds settings for a single site, keyed by authority
// ("host" or "host:port") in the configuration file.
//
// Zero values mean "not set". Delay and AllowExternal are pointers because
// zero and false are meaningful overrides for them.
type SiteConfig struct {
	// Depth overrides the maximum crawl depth.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the page budget.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Delay overrides the pause after each emitted page, e.g. "500ms".
	Delay *time.Duration `yaml:"delay,omitempty"`

	// AllowExternal overrides whether links to other authorities are followed.
	AllowExternal *bool `yaml:"allowExternal,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Cookie is an HTTP cookie to send to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers to send to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are path patterns of links to skip.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, are the only link paths followed.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .pagecrawl configuration file.
type File struct {
	// Sites maps authorities to their site-specific configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for authority, with the site
// entry merged over the defaults.
func (cf *File) GetSiteConfig(authority string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	if site, ok := cf.Sites[authority]; ok {
		result = result.merge(site)
	}

	return result
}

// merge returns c with every field set in override replacing c's value.
// Headers are merged key by key.
func (c SiteConfig) merge(override SiteConfig) SiteConfig {
	if override.Depth != 0 {
		c.Depth = override.Depth
	}
	if override.MaxPages != 0 {
		c.MaxPages = override.MaxPages
	}
	if override.Delay != nil {
		c.Delay = override.Delay
	}
	if override.AllowExternal != nil {
		c.AllowExternal = override.AllowExternal
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.Cookie != "" {
		c.Cookie = override.Cookie
	}
	if len(override.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(override.Headers))
		}
		maps.Copy(c.Headers, override.Headers)
	}
	if len(override.IgnorePatterns) > 0 {
		c.IgnorePatterns = override.IgnorePatterns
	}
	if len(override.FollowPatterns) > 0 {
		c.FollowPatterns = override.FollowPatterns
	}
	return c
}

// CrawlSettings are the effective settings for one seed.
type CrawlSettings struct {
	MaxDepth       int
	MaxPages       int
	Delay          time.Duration
	AllowExternal  bool
	UserAgent      string
	Cookie         string
	Headers        map[string]string
	IgnorePatterns []string
	FollowPatterns []string
}

// SettingsFor returns the settings for a seed with the given authority:
// the command line values, overridden by the configuration file.
func (c *Config) SettingsFor(authority string) CrawlSettings {
	site := c.SiteConfigs.GetSiteConfig(authority)

	s := CrawlSettings{
		MaxDepth:       c.MaxDepth,
		MaxPages:       c.MaxPages,
		Delay:          c.CrawlDelay,
		AllowExternal:  c.AllowExternal,
		UserAgent:      c.UserAgent,
		IgnorePatterns: c.IgnorePatterns,
		FollowPatterns: c.FollowPatterns,
	}

	if site.Depth != 0 {
		s.MaxDepth = site.Depth
	}
	if site.MaxPages != 0 {
		s.MaxPages = site.MaxPages
	}
	if site.Delay != nil {
		s.Delay = *site.Delay
	}
	if site.AllowExternal != nil {
		s.AllowExternal = *site.AllowExternal
	}
	if site.UserAgent != "" {
		s.UserAgent = site.UserAgent
	}
	s.Cookie = site.Cookie
	s.Headers = site.Headers
	if len(site.IgnorePatterns) > 0 {
		s.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		s.FollowPatterns = site.FollowPatterns
	}

	return s
}
