// Package config loads the redaction and logging settings from a TOML or YAML
// file. The format is chosen by file extension.
//
//	[redaction]
//	placeholder = "***"
//	mode = "both"
//	max_depth = 10
//
//	[logging]
//	level = "info"
//	format = "auto"
//	dir = "/var/log/redactdemo"
//
//	[demo]
//	interval = "2s"
//	iterations = 0
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/isseis/go-log-redactor/internal/destructure"
	"github.com/isseis/go-log-redactor/internal/logging"
)

const (
	// maxConfigSize is the maximum allowed configuration file size (1MB)
	maxConfigSize = 1 * 1024 * 1024

	// maxPlaceholderLength bounds the placeholder text
	maxPlaceholderLength = 256

	// DefaultInterval is the default delay between demo log iterations
	DefaultInterval = 2 * time.Second
)

// Config is the configuration file structure.
type Config struct {
	Redaction RedactionConfig `toml:"redaction" yaml:"redaction"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Demo      DemoConfig      `toml:"demo" yaml:"demo"`
}

// RedactionConfig holds the redaction settings.
type RedactionConfig struct {
	// Placeholder replaces sensitive values. Empty selects "[REDACTED]".
	Placeholder string `toml:"placeholder" yaml:"placeholder"`
	// Mode is one of destructure, enrich or both.
	Mode string `toml:"mode" yaml:"mode"`
	// MaxDepth limits the nesting of destructured values.
	MaxDepth int `toml:"max_depth" yaml:"max_depth"`
}

// LoggingConfig holds the log output settings.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Dir    string `toml:"dir" yaml:"dir"`
}

// DemoConfig holds the demo application settings.
type DemoConfig struct {
	Interval   Duration `toml:"interval" yaml:"interval"`
	Iterations int      `toml:"iterations" yaml:"iterations"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Redaction.Mode == "" {
		cfg.Redaction.Mode = string(logging.ModeBoth)
	}
	if cfg.Redaction.MaxDepth == 0 {
		cfg.Redaction.MaxDepth = destructure.DefaultMaxDepth
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = string(logging.FormatAuto)
	}
	if cfg.Demo.Interval == 0 {
		cfg.Demo.Interval = Duration(DefaultInterval)
	}
}

// Load reads, defaults and validates the configuration file at path.
func Load(path string) (*Config, error) {
	decode, err := decoderFor(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrConfigTooLarge, info.Size(), maxConfigSize)
	}

	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := decode(io.LimitReader(f, maxConfigSize), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

type decodeFunc func(r io.Reader, cfg *Config) error

func decoderFor(path string) (decodeFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return decodeTOML, nil
	case ".yaml", ".yml":
		return decodeYAML, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func decodeTOML(r io.Reader, cfg *Config) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks field values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidValue)
	}

	if len(cfg.Redaction.Placeholder) > maxPlaceholderLength {
		return &ErrInvalidFieldDetail{Section: "redaction", Field: "placeholder", Value: len(cfg.Redaction.Placeholder),
			Reason: fmt.Sprintf("longer than %d bytes", maxPlaceholderLength)}
	}
	if _, err := logging.ParseMode(cfg.Redaction.Mode); err != nil {
		return &ErrInvalidFieldDetail{Section: "redaction", Field: "mode", Value: cfg.Redaction.Mode,
			Reason: "must be destructure, enrich or both"}
	}
	if cfg.Redaction.MaxDepth < 0 {
		return &ErrInvalidFieldDetail{Section: "redaction", Field: "max_depth", Value: cfg.Redaction.MaxDepth,
			Reason: "must not be negative"}
	}

	if _, err := ParseLevel(cfg.Logging.Level); err != nil {
		return &ErrInvalidFieldDetail{Section: "logging", Field: "level", Value: cfg.Logging.Level,
			Reason: "must be debug, info, warn or error"}
	}
	if _, err := logging.ParseFormat(cfg.Logging.Format); err != nil {
		return &ErrInvalidFieldDetail{Section: "logging", Field: "format", Value: cfg.Logging.Format,
			Reason: "must be auto, text or json"}
	}

	if cfg.Demo.Interval < 0 {
		return &ErrInvalidFieldDetail{Section: "demo", Field: "interval", Value: cfg.Demo.Interval,
			Reason: "must not be negative"}
	}
	if cfg.Demo.Iterations < 0 {
		return &ErrInvalidFieldDetail{Section: "demo", Field: "iterations", Value: cfg.Demo.Iterations,
			Reason: "must not be negative"}
	}
	return nil
}

// ParseLevel parses a slog level name such as "info" or "warn+1".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return level, nil
}

// SetupOptions converts the configuration into logging.SetupOptions. The
// caller sets the writers and terminal overrides.
func (c *Config) SetupOptions() (logging.SetupOptions, error) {
	level, err := ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.SetupOptions{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	mode, err := logging.ParseMode(c.Redaction.Mode)
	if err != nil {
		return logging.SetupOptions{}, err
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return logging.SetupOptions{}, err
	}

	return logging.SetupOptions{
		Level:       level,
		Format:      format,
		LogDir:      c.Logging.Dir,
		Placeholder: c.Redaction.Placeholder,
		Mode:        mode,
		MaxDepth:    c.Redaction.MaxDepth,
	}, nil
}

// Duration is a time.Duration written as a string such as "1500ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// String returns the duration in time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}
