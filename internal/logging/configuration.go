// Package logging wires destructuring policies and enrichers into a log/slog
// pipeline. A Configuration collects them and builds a RedactingHandler:
//
//	cfg := logging.NewConfiguration()
//	if _, err := logging.WithRedactor(cfg.Destructure, ""); err != nil {
//		return err
//	}
//	logger, err := cfg.WriteTo(slog.NewJSONHandler(os.Stdout, nil)).CreateLogger()
package logging

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/isseis/go-log-redactor/internal/destructure"
	"github.com/isseis/go-log-redactor/internal/logevent"
	"github.com/isseis/go-log-redactor/internal/redaction"
	"github.com/isseis/go-log-redactor/internal/sensitivity"
)

// Errors returned while building a pipeline.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoDestination   = errors.New("no handler or sink configured")
	ErrNilHandler      = errors.New("handler must not be nil")
)

// Configuration builds a RedactingHandler. It is not safe for concurrent use;
// configure it once during startup.
type Configuration struct {
	// Destructure adds destructuring policies.
	Destructure *DestructuringConfiguration
	// Enrich adds enrichers.
	Enrich *EnrichmentConfiguration

	policies  []destructure.Policy
	enrichers []logevent.Enricher
	handlers  []slog.Handler
	sinks     []EventSink
	level     slog.Leveler
	maxDepth  int
	registry  *sensitivity.Registry
	failures  destructure.FailureRecorder
	logger    *slog.Logger
}

// DestructuringConfiguration is the destructuring section of a Configuration.
type DestructuringConfiguration struct {
	parent *Configuration
}

// EnrichmentConfiguration is the enrichment section of a Configuration.
type EnrichmentConfiguration struct {
	parent *Configuration
}

// NewConfiguration returns an empty Configuration.
func NewConfiguration() *Configuration {
	c := &Configuration{maxDepth: destructure.DefaultMaxDepth}
	c.Destructure = &DestructuringConfiguration{parent: c}
	c.Enrich = &EnrichmentConfiguration{parent: c}
	return c
}

// With appends destructuring policies, consulted in order.
func (d *DestructuringConfiguration) With(policies ...destructure.Policy) *Configuration {
	d.parent.policies = append(d.parent.policies, policies...)
	return d.parent
}

// With appends enrichers, run in order.
func (e *EnrichmentConfiguration) With(enrichers ...logevent.Enricher) *Configuration {
	e.parent.enrichers = append(e.parent.enrichers, enrichers...)
	return e.parent
}

// WithRedactor adds a redacting destructuring policy. An empty placeholder
// selects redaction.DefaultPlaceholder.
func WithRedactor(d *DestructuringConfiguration, placeholder string, opts ...redaction.Option) (*Configuration, error) {
	if d == nil || d.parent == nil {
		return nil, fmt.Errorf("%w: destructuring configuration is nil", ErrInvalidArgument)
	}
	opts = append([]redaction.Option{redaction.WithPlaceholder(placeholder)}, opts...)
	return d.With(redaction.NewPolicy(opts...)), nil
}

// EnrichWithRedactor adds a redacting enricher. An empty placeholder selects
// redaction.DefaultPlaceholder.
func EnrichWithRedactor(e *EnrichmentConfiguration, placeholder string, opts ...redaction.Option) (*Configuration, error) {
	if e == nil || e.parent == nil {
		return nil, fmt.Errorf("%w: enrichment configuration is nil", ErrInvalidArgument)
	}
	opts = append([]redaction.Option{redaction.WithPlaceholder(placeholder)}, opts...)
	return e.With(redaction.NewEnricher(opts...)), nil
}

// WriteTo adds a handler that receives every redacted record.
func (c *Configuration) WriteTo(handlers ...slog.Handler) *Configuration {
	c.handlers = append(c.handlers, handlers...)
	return c
}

// WriteToSink adds a sink that receives every redacted event.
func (c *Configuration) WriteToSink(sinks ...EventSink) *Configuration {
	c.sinks = append(c.sinks, sinks...)
	return c
}

// MinimumLevel sets the lowest level that is processed. Without it the
// destination handlers decide.
func (c *Configuration) MinimumLevel(level slog.Leveler) *Configuration {
	c.level = level
	return c
}

// MaxDepth sets the nesting limit of destructured values.
func (c *Configuration) MaxDepth(depth int) *Configuration {
	c.maxDepth = depth
	return c
}

// Registry sets the sensitivity registry the destructurer enumerates fields
// with.
func (c *Configuration) Registry(r *sensitivity.Registry) *Configuration {
	c.registry = r
	return c
}

// RecordFailuresTo sets where conversion failures are reported.
func (c *Configuration) RecordFailuresTo(r destructure.FailureRecorder) *Configuration {
	c.failures = r
	return c
}

// DiagnosticsLogger sets the logger the pipeline reports its own problems
// to. It must not route back into the handler being built.
func (c *Configuration) DiagnosticsLogger(logger *slog.Logger) *Configuration {
	c.logger = logger
	return c
}

// CreateHandler builds the handler.
func (c *Configuration) CreateHandler() (*RedactingHandler, error) {
	if len(c.handlers) == 0 && len(c.sinks) == 0 {
		return nil, ErrNoDestination
	}

	var next slog.Handler
	switch len(c.handlers) {
	case 0:
	case 1:
		if c.handlers[0] == nil {
			return nil, ErrNilHandler
		}
		next = c.handlers[0]
	default:
		multi, err := NewMultiHandler(c.handlers...)
		if err != nil {
			return nil, err
		}
		next = multi
	}

	p := c.Pipeline()
	return &RedactingHandler{
		next:      next,
		converter: p.Converter,
		enrichers: p.Enrichers,
		sinks:     append([]EventSink(nil), c.sinks...),
		level:     c.level,
	}, nil
}

// Pipeline is the backend-independent part of a Configuration: the converter
// that destructures values through the policies, and the enrichers run on
// each event.
type Pipeline struct {
	Converter *destructure.Converter
	Enrichers []logevent.Enricher
}

// Pipeline builds the converter and enrichers without any destination, for
// logging backends other than log/slog.
func (c *Configuration) Pipeline() Pipeline {
	opts := []destructure.Option{
		destructure.WithPolicies(c.policies...),
		destructure.WithMaxDepth(c.maxDepth),
		destructure.WithRegistry(c.registry),
		destructure.WithFailureRecorder(c.failures),
	}
	if c.logger != nil {
		opts = append(opts, destructure.WithLogger(c.logger))
	}

	return Pipeline{
		Converter: destructure.New(opts...),
		Enrichers: append([]logevent.Enricher(nil), c.enrichers...),
	}
}

// CreateLogger builds the handler and wraps it in a logger.
func (c *Configuration) CreateLogger() (*slog.Logger, error) {
	h, err := c.CreateHandler()
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}
