package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/isseis/go-log-redactor/internal/redaction"
	"github.com/isseis/go-log-redactor/internal/terminal"
	"github.com/isseis/go-log-redactor/internal/typecatalog"
)

const (
	// File permissions for log files
	logFilePerm = 0o600
	// Directory permissions for the log directory
	logDirPerm = 0o750

	// maxRecordedFailures bounds the failure collector.
	maxRecordedFailures = 1000

	// logSchemaVersion is written to every file log record.
	logSchemaVersion = 1

	unknownHost = "unknown"
)

// Errors returned by the parsers.
var (
	ErrInvalidMode   = errors.New("invalid redaction mode")
	ErrInvalidFormat = errors.New("invalid console format")
)

// Mode selects at which stage sensitive values are redacted.
type Mode string

const (
	// ModeDestructure redacts while values are destructured.
	ModeDestructure Mode = "destructure"
	// ModeEnrich redacts already destructured events.
	ModeEnrich Mode = "enrich"
	// ModeBoth installs both redactors.
	ModeBoth Mode = "both"
)

// ParseMode parses a Mode. The empty string selects ModeBoth.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeBoth, nil
	case ModeDestructure, ModeEnrich, ModeBoth:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Format selects the console output encoding.
type Format string

const (
	// FormatAuto uses text on interactive consoles and JSON elsewhere.
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses a Format. The empty string selects FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// SetupOptions holds all configuration for logger setup.
type SetupOptions struct {
	Level         slog.Level
	Format        Format
	LogDir        string    // Directory for the per-run JSON log file; empty disables it
	RunID         string    // Identifier written to every file record; generated when empty
	ConsoleWriter io.Writer // Writer for console output (stdout by default)
	ReportWriter  io.Writer // Writer for the failure report (stderr by default)

	Placeholder string
	Mode        Mode
	MaxDepth    int
	Catalog     *typecatalog.Catalog

	ForceInteractive    bool
	ForceNonInteractive bool

	// Detector overrides terminal detection; mostly for tests.
	Detector *terminal.Detector
}

// Runtime is an initialized logging pipeline.
type Runtime struct {
	Logger      *slog.Logger
	Failures    *redaction.MemoryCollector
	Reporter    *redaction.Reporter
	RunID       string
	LogPath     string
	Interactive bool

	file *os.File
}

// Close reports collected destructuring failures and closes the log file.
func (r *Runtime) Close() error {
	var errs []error
	if r.Reporter != nil {
		if err := r.Reporter.Report(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
		}
		r.file = nil
	}
	return errors.Join(errs...)
}

// GenerateRunID returns a new, time-ordered run identifier.
func GenerateRunID() string {
	return ulid.Make().String()
}

// ApplyMode adds the redactors selected by mode to cfg.
func ApplyMode(cfg *Configuration, mode Mode, placeholder string, opts ...redaction.Option) error {
	if cfg == nil {
		return fmt.Errorf("%w: configuration is nil", ErrInvalidArgument)
	}
	if mode == ModeDestructure || mode == ModeBoth {
		if _, err := WithRedactor(cfg.Destructure, placeholder, opts...); err != nil {
			return err
		}
	}
	if mode == ModeEnrich || mode == ModeBoth {
		if _, err := EnrichWithRedactor(cfg.Enrich, placeholder, opts...); err != nil {
			return err
		}
	}
	return nil
}

// Setup builds the redacting logger: a console handler, an optional per-run
// JSON file, a failure collector and the redactors selected by Mode. It does
// not replace slog's default logger.
func Setup(opts SetupOptions) (*Runtime, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}

	rt := &Runtime{RunID: opts.RunID}
	if rt.RunID == "" {
		rt.RunID = GenerateRunID()
	}

	consoleWriter := opts.ConsoleWriter
	if consoleWriter == nil {
		consoleWriter = os.Stdout
	}
	reportWriter := opts.ReportWriter
	if reportWriter == nil {
		reportWriter = os.Stderr
	}

	detector := opts.Detector
	if detector == nil {
		detector = terminal.NewDetector(terminal.Options{
			ForceInteractive:    opts.ForceInteractive,
			ForceNonInteractive: opts.ForceNonInteractive,
		})
	}
	rt.Interactive = detector.IsInteractive(consoleWriter)

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var handlers []slog.Handler

	// 1. Console handler
	if format == FormatText || (format == FormatAuto && rt.Interactive) {
		handlers = append(handlers, slog.NewTextHandler(consoleWriter, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(consoleWriter, handlerOpts))
	}

	// 2. Machine-readable log handler (to file, per-run auto-named)
	if opts.LogDir != "" {
		f, path, err := openLogFile(opts.LogDir, rt.RunID)
		if err != nil {
			return nil, err
		}
		rt.file = f
		rt.LogPath = path

		handlers = append(handlers, slog.NewJSONHandler(f, handlerOpts).WithAttrs([]slog.Attr{
			slog.String("hostname", hostname()),
			slog.Int("pid", os.Getpid()),
			slog.Int("schema_version", logSchemaVersion),
			slog.String("run_id", rt.RunID),
		}))
	}

	// Diagnostics bypass the redacting handler so that failures inside it
	// cannot recurse.
	plain, err := NewMultiHandler(handlers...)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("failed to create diagnostics handler: %w", err)
	}
	diagnostics := slog.New(plain)

	rt.Failures = redaction.NewMemoryCollector(maxRecordedFailures)
	rt.Reporter = redaction.NewReporter(rt.Failures, reportWriter, diagnostics)

	redactionOpts := []redaction.Option{redaction.WithLogger(diagnostics)}
	if opts.Catalog != nil {
		redactionOpts = append(redactionOpts, redaction.WithCatalog(opts.Catalog))
	}

	cfg := NewConfiguration().
		WriteTo(plain).
		MinimumLevel(opts.Level).
		RecordFailuresTo(rt.Failures).
		DiagnosticsLogger(diagnostics)
	if opts.MaxDepth > 0 {
		cfg.MaxDepth(opts.MaxDepth)
	}
	if err := ApplyMode(cfg, mode, opts.Placeholder, redactionOpts...); err != nil {
		_ = rt.Close()
		return nil, err
	}

	logger, err := cfg.CreateLogger()
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	rt.Logger = logger

	logger.Debug("Logger initialized",
		"log_level", opts.Level,
		"log_dir", opts.LogDir,
		"run_id", rt.RunID,
		"mode", string(mode),
		"format", string(format),
		"interactive_mode", rt.Interactive)

	return rt, nil
}

// openLogFile creates a new log file named after the host, the current time
// and the run. An existing file is never reused.
func openLogFile(dir, runID string) (*os.File, string, error) {
	if err := os.MkdirAll(dir, logDirPerm); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().UTC().Format("20060102T150405Z")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_%s.json", hostname(), timestamp, runID))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, logFilePerm) //nolint:gosec // path is built from trusted configuration
	if err != nil {
		return nil, "", fmt.Errorf("failed to open log file: %w", err)
	}
	return f, path, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return unknownHost
	}
	return h
}
