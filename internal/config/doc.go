// Package config holds the settings of a pagecrawl invocation: crawl
// limits, fetch behavior, report output and storage, plus the optional
// .pagecrawl YAML file with per-site overrides.
package config
