package logging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/isseis/go-log-redactor/internal/destructure"
	"github.com/isseis/go-log-redactor/internal/logevent"
	"github.com/isseis/go-log-redactor/internal/logtree"
)

// EventSink receives fully processed events.
type EventSink interface {
	Emit(ctx context.Context, ev *logevent.Event) error
}

// RedactingHandler is a slog.Handler that turns each record into a
// logevent.Event, destructures its attributes through the configured
// policies, runs the enrichers and forwards the result as a new record. The
// wrapped handler only ever sees destructured trees.
type RedactingHandler struct {
	next      slog.Handler
	converter *destructure.Converter
	enrichers []logevent.Enricher
	sinks     []EventSink
	level     slog.Leveler
	goas      []groupOrAttrs
}

// groupOrAttrs is one WithGroup or WithAttrs call.
type groupOrAttrs struct {
	group string
	attrs []slog.Attr
}

// Handler returns the wrapped handler, or nil when only sinks are configured.
func (h *RedactingHandler) Handler() slog.Handler {
	return h.next
}

// Enabled reports whether the handler handles records at the given level.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.level != nil {
		return level >= h.level.Level()
	}
	if h.next == nil {
		return true
	}
	return h.next.Enabled(ctx, level)
}

// Handle processes the record and forwards it to the wrapped handler and the
// sinks. Errors from all destinations are joined.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	ev := h.capture(record)
	ev.Enrich(h.enrichers...)

	var errs []error
	if h.next != nil && h.next.Enabled(ctx, record.Level) {
		if err := h.next.Handle(ctx, toRecord(record, ev)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range h.sinks {
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(groupOrAttrs{attrs: attrs})
}

// WithGroup returns a handler that nests later attributes under name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(groupOrAttrs{group: name})
}

func (h *RedactingHandler) with(goa groupOrAttrs) *RedactingHandler {
	h2 := *h
	h2.goas = make([]groupOrAttrs, len(h.goas)+1)
	copy(h2.goas, h.goas)
	h2.goas[len(h.goas)] = goa
	return &h2
}

// openGroup is one group while a record is captured.
type openGroup struct {
	name  string
	props []logtree.Property
}

// capture converts the handler and record attributes into an event. Open
// groups become structures; empty groups are dropped as slog does.
func (h *RedactingHandler) capture(record slog.Record) *logevent.Event {
	levels := []*openGroup{{}}
	for _, goa := range h.goas {
		if goa.group != "" {
			levels = append(levels, &openGroup{name: goa.group})
			continue
		}
		cur := levels[len(levels)-1]
		for _, a := range goa.attrs {
			cur.props = h.appendAttr(cur.props, a)
		}
	}

	cur := levels[len(levels)-1]
	record.Attrs(func(a slog.Attr) bool {
		cur.props = h.appendAttr(cur.props, a)
		return true
	})

	for i := len(levels) - 1; i > 0; i-- {
		if len(levels[i].props) == 0 {
			continue
		}
		parent := levels[i-1]
		parent.props = append(parent.props, logtree.Prop(levels[i].name, logtree.Structure("", levels[i].props...)))
	}

	ev := logevent.New(record.Time, record.Level, record.Message)
	for _, p := range levels[0].props {
		ev.AddOrUpdateProperty(p)
	}
	return ev
}

func (h *RedactingHandler) appendAttr(props []logtree.Property, a slog.Attr) []logtree.Property {
	if a.Equal(slog.Attr{}) {
		return props
	}

	if a.Value.Kind() == slog.KindGroup {
		children := a.Value.Group()
		if len(children) == 0 {
			return props
		}
		if a.Key == "" {
			for _, c := range children {
				props = h.appendAttr(props, c)
			}
			return props
		}
		var nested []logtree.Property
		for _, c := range children {
			nested = h.appendAttr(nested, c)
		}
		return append(props, logtree.Prop(a.Key, logtree.Structure("", nested...)))
	}

	// LogValuers reach the converter unresolved so that policies see the
	// original value first.
	return append(props, logtree.Prop(a.Key, h.converter.Convert(a.Key, a.Value.Any())))
}

// toRecord builds the record forwarded to the wrapped handler.
func toRecord(orig slog.Record, ev *logevent.Event) slog.Record {
	r := slog.NewRecord(orig.Time, orig.Level, orig.Message, orig.PC)
	for _, p := range ev.Properties() {
		r.AddAttrs(slog.Attr{Key: p.Name, Value: logtree.SlogValue(p.Value)})
	}
	return r
}
