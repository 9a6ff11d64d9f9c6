// Package main runs a demo that logs records containing personal data through
// the redacting pipeline until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/isseis/go-log-redactor/internal/config"
	"github.com/isseis/go-log-redactor/internal/logging"
	"github.com/isseis/go-log-redactor/internal/redaction"
	"github.com/isseis/go-log-redactor/internal/typecatalog"
	"github.com/isseis/go-log-redactor/internal/zaplog"
)

// Error definitions
var (
	ErrInvalidBackend = errors.New("invalid backend")
)

const (
	backendSlog = "slog"
	backendZap  = "zap"
)

// options are the parsed command line flags. Empty or zero values leave the
// config file setting in place.
type options struct {
	configPath  string
	placeholder string
	mode        string
	format      string
	backend     string
	logLevel    string
	logDir      string
	interval    time.Duration
	iterations  int
	interactive bool
	quiet       bool
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("redactdemo", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "path to config file (.toml, .yaml or .yml)")
	fs.StringVar(&opts.placeholder, "placeholder", "", "text that replaces sensitive values (default \"[REDACTED]\")")
	fs.StringVar(&opts.mode, "mode", "", "redaction stage: destructure, enrich or both")
	fs.StringVar(&opts.format, "format", "", "console format: auto, text or json")
	fs.StringVar(&opts.backend, "backend", backendSlog, "logging backend: slog or zap")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&opts.logDir, "log-dir", "", "directory to place per-run JSON log (auto-named)")
	fs.DurationVar(&opts.interval, "interval", 0, "delay between iterations")
	fs.IntVar(&opts.iterations, "iterations", -1, "number of iterations, 0 runs until interrupted")
	fs.BoolVar(&opts.interactive, "interactive", false, "force interactive console output")
	fs.BoolVar(&opts.quiet, "quiet", false, "force non-interactive console output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.backend != backendSlog && opts.backend != backendZap {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBackend, opts.backend)
	}
	return opts, nil
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.placeholder != "" {
		cfg.Redaction.Placeholder = opts.placeholder
	}
	if opts.mode != "" {
		cfg.Redaction.Mode = opts.mode
	}
	if opts.format != "" {
		cfg.Logging.Format = opts.format
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logDir != "" {
		cfg.Logging.Dir = opts.logDir
	}
	if opts.interval > 0 {
		cfg.Demo.Interval = config.Duration(opts.interval)
	}
	if opts.iterations >= 0 {
		cfg.Demo.Iterations = opts.iterations
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	setupOpts, err := cfg.SetupOptions()
	if err != nil {
		return err
	}
	setupOpts.ConsoleWriter = stdout
	setupOpts.ReportWriter = stderr
	setupOpts.Catalog = typecatalog.Default
	setupOpts.ForceInteractive = opts.interactive
	setupOpts.ForceNonInteractive = opts.quiet

	rt, err := logging.Setup(setupOpts)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to close logger: %v\n", err)
		}
	}()
	prev := slog.Default()
	slog.SetDefault(rt.Logger)
	defer slog.SetDefault(prev)

	var emit func()
	switch opts.backend {
	case backendZap:
		logger, err := newZapLogger(setupOpts, rt, stdout)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		emit = func() { logCompanyZap(logger, newCompany()) }
	default:
		emit = func() { logCompany(rt.Logger, newCompany()) }
	}

	return loop(ctx, time.Duration(cfg.Demo.Interval), cfg.Demo.Iterations, emit)
}

// loop calls emit every interval until ctx is done or iterations are
// exhausted. Zero iterations means no limit.
func loop(ctx context.Context, interval time.Duration, iterations int, emit func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; iterations == 0 || i < iterations; i++ {
		emit()
		if iterations != 0 && i == iterations-1 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func logCompany(logger *slog.Logger, company Company) {
	logger.Info("Logging company", "company", company)
	logger.Info("Logging people individually")

	for _, person := range company.Employees {
		logger.Info("Logging person", "person", person)
		logger.Info("With redacted values", "username", person.Username, "password", person.Password)
		logger.Info("Without redacted values, fields logged directly are not redacted",
			"ssn", person.SSN,
			"emails", person.Emails)
	}
}

// newZapLogger builds a zap logger that shares the redaction settings and the
// failure collector of rt.
func newZapLogger(opts logging.SetupOptions, rt *logging.Runtime, w io.Writer) (*zap.Logger, error) {
	cfg := logging.NewConfiguration().
		RecordFailuresTo(rt.Failures).
		DiagnosticsLogger(rt.Logger)
	if opts.MaxDepth > 0 {
		cfg.MaxDepth(opts.MaxDepth)
	}

	if err := logging.ApplyMode(cfg, opts.Mode, opts.Placeholder, redaction.WithCatalog(opts.Catalog)); err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), zapLevel(opts.Level))

	return zaplog.New(core, cfg, zap.Fields(zap.String("run_id", rt.RunID))), nil
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level < slog.LevelInfo:
		return zapcore.DebugLevel
	case level < slog.LevelWarn:
		return zapcore.InfoLevel
	case level < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func logCompanyZap(logger *zap.Logger, company Company) {
	logger.Info("Logging company", zap.Any("company", company))
	logger.Info("Logging people individually")

	for _, person := range company.Employees {
		logger.Info("Logging person", zap.Any("person", person))
		logger.Info("With redacted values", zap.Reflect("username", person.Username), zap.Reflect("password", person.Password))
		logger.Info("Without redacted values, fields logged directly are not redacted",
			zap.Stringp("ssn", person.SSN),
			zap.Strings("emails", person.Emails))
	}
}
