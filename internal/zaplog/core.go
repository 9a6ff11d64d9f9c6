package zaplog

import (
	"fmt"
	"log/slog"
	"reflect"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/isseis/go-log-redactor/internal/destructure"
	"github.com/isseis/go-log-redactor/internal/logevent"
	"github.com/isseis/go-log-redactor/internal/logging"
	"github.com/isseis/go-log-redactor/internal/logtree"
	"github.com/isseis/go-log-redactor/internal/redacted"
)

// Core is a zapcore.Core that redacts reflected fields before handing them to
// the wrapped core.
type Core struct {
	zapcore.Core
	pipeline logging.Pipeline
}

// NewCore wraps next with the given pipeline. A pipeline without a converter
// destructures with the defaults and no policies.
func NewCore(next zapcore.Core, pipeline logging.Pipeline) *Core {
	if pipeline.Converter == nil {
		pipeline.Converter = destructure.New()
	}
	return &Core{Core: next, pipeline: pipeline}
}

// New builds a zap.Logger from cfg that writes to next.
func New(next zapcore.Core, cfg *logging.Configuration, opts ...zap.Option) *zap.Logger {
	return zap.New(NewCore(next, cfg.Pipeline()), opts...)
}

// With redacts fields once and attaches them to the wrapped core.
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	return &Core{
		Core:     c.Core.With(c.redact(zapcore.Entry{Level: zapcore.InfoLevel}, fields)),
		pipeline: c.pipeline,
	}
}

// Check adds c to ce when the wrapped core accepts the entry.
func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write redacts fields and writes the entry to the wrapped core.
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, c.redact(ent, fields))
}

// redactable reports whether f goes through the pipeline. Besides reflected
// fields, zap.Any hands redacted wrappers and other Stringer or error values
// over as Stringer and error fields; those are taken when they are wrappers
// or their type has sensitive fields.
func (c *Core) redactable(f zapcore.Field) bool {
	switch f.Type {
	case zapcore.ReflectType:
		return true
	case zapcore.StringerType, zapcore.ErrorType:
		if _, ok := f.Interface.(redacted.Wrapper); ok {
			return true
		}
		return c.pipeline.Converter.Registry().HasSensitiveFields(reflect.TypeOf(f.Interface))
	}
	return false
}

// redact converts reflected fields into trees, runs the enrichers over them
// and returns the fields in their original order. Properties added by an
// enricher are appended.
func (c *Core) redact(ent zapcore.Entry, fields []zapcore.Field) []zapcore.Field {
	ev := logevent.New(ent.Time, slogLevel(ent.Level), ent.Message)
	names := make([]string, len(fields))
	for i, f := range fields {
		if !c.redactable(f) {
			continue
		}
		name := f.Key
		if _, dup := ev.Property(name); dup {
			name = fmt.Sprintf("%s#%d", f.Key, i)
		}
		names[i] = name
		ev.AddOrUpdateProperty(logtree.Prop(name, c.pipeline.Converter.Convert(f.Key, f.Interface)))
	}

	if ev.Len() == 0 && len(c.pipeline.Enrichers) == 0 {
		return fields
	}
	ev.Enrich(c.pipeline.Enrichers...)

	out := make([]zapcore.Field, 0, len(fields))
	seen := make(map[string]bool, len(names))
	for i, f := range fields {
		if names[i] == "" {
			out = append(out, f)
			continue
		}
		seen[names[i]] = true
		if n, ok := ev.Property(names[i]); ok {
			out = append(out, Field(f.Key, n))
		}
	}
	for _, p := range ev.Properties() {
		if !seen[p.Name] {
			out = append(out, Field(p.Name, p.Value))
		}
	}
	return out
}

func slogLevel(l zapcore.Level) slog.Level {
	switch {
	case l <= zapcore.DebugLevel:
		return slog.LevelDebug
	case l == zapcore.InfoLevel:
		return slog.LevelInfo
	case l == zapcore.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
