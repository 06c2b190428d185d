package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is matched by every *ConfigError.
	ErrConfig = errors.New("invalid crawl configuration")

	// ErrInvalidSeed indicates a seed URL without scheme or authority.
	ErrInvalidSeed = errors.New("seed URL must have a scheme and a host")

	// ErrInvalidMaxDepth indicates a max depth below 1.
	ErrInvalidMaxDepth = errors.New("max depth must be at least 1")

	// ErrInvalidMaxPages indicates a page budget below 1.
	ErrInvalidMaxPages = errors.New("max pages must be at least 1")

	// ErrInvalidDelay indicates a negative politeness delay.
	ErrInvalidDelay = errors.New("delay must not be negative")

	// ErrDone is returned by Run.Next when the run has no more records.
	ErrDone = errors.New("crawl finished")
)

// ConfigError reports an unusable crawl setting. It is returned by
// Spider.Start before any request is made.
type ConfigError struct {
	// Field names the offending setting ("seed", "max_depth", "max_pages", "delay").
	Field string

	// Value is the rejected value.
	Value any

	// Err is one of ErrInvalidSeed, ErrInvalidMaxDepth, ErrInvalidMaxPages
	// or ErrInvalidDelay.
	Err error
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %v", ErrConfig, e.Field, e.Value, e.Err)
}

// Unwrap returns the specific sentinel.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is makes every ConfigError match ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}
