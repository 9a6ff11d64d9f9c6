// Package redaction replaces the values of sensitive fields with a
// placeholder in destructured log properties.
//
// Two redactors share the same rules:
//   - Policy is a destructuring policy. It sees the live value and builds an
//     already redacted tree.
//   - Enricher rewrites the properties of an event whose trees were built by
//     some other destructurer, recovering types from their tags.
//
// Sensitive fields are declared with the struct tag `sensitive:"true"` and
// standalone values with redacted.Value.
package redaction

import (
	"log/slog"

	"github.com/isseis/go-log-redactor/internal/redacted"
	"github.com/isseis/go-log-redactor/internal/sensitivity"
	"github.com/isseis/go-log-redactor/internal/typecatalog"
)

// DefaultPlaceholder is used when no placeholder is configured.
const DefaultPlaceholder = redacted.DefaultPlaceholder

// Config controls how sensitive values are redacted.
type Config struct {
	// Placeholder replaces sensitive values. Empty means DefaultPlaceholder.
	Placeholder string
	// Registry caches field sensitivity per type.
	Registry *sensitivity.Registry
	// Catalog resolves type tags. Only the Enricher uses it.
	Catalog *typecatalog.Catalog
	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default redaction configuration.
func DefaultConfig() *Config {
	return &Config{
		Placeholder: DefaultPlaceholder,
		Registry:    sensitivity.Default,
		Catalog:     typecatalog.Default,
	}
}

// Option configures a redactor.
type Option func(*Config)

// WithPlaceholder sets the placeholder text.
func WithPlaceholder(placeholder string) Option {
	return func(c *Config) {
		c.Placeholder = placeholder
	}
}

// WithRegistry sets the sensitivity registry.
func WithRegistry(r *sensitivity.Registry) Option {
	return func(c *Config) {
		c.Registry = r
	}
}

// WithCatalog sets the type catalog used to resolve type tags.
func WithCatalog(cat *typecatalog.Catalog) Option {
	return func(c *Config) {
		c.Catalog = cat
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

func newConfig(opts []Option) Config {
	cfg := *DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = DefaultPlaceholder
	}
	if cfg.Registry == nil {
		cfg.Registry = sensitivity.Default
	}
	if cfg.Catalog == nil {
		cfg.Catalog = typecatalog.Default
	}
	return cfg
}

func (c *Config) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// isAbsent reports whether v stands for "no value": nil, a nil pointer-like
// value, or a redacted.Value wrapping one.
func isAbsent(v any) bool {
	if v == nil || redacted.IsNil(v) {
		return true
	}
	if w, ok := v.(redacted.Wrapper); ok {
		return w.Absent()
	}
	return false
}
