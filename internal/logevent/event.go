// Package logevent defines a log event as seen by enrichers: an identified,
// timestamped message with an ordered, name-keyed set of destructured
// properties.
package logevent

import (
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/isseis/go-log-redactor/internal/logtree"
)

// PropertySet is the part of an event an enricher may read and rewrite.
type PropertySet interface {
	// Properties returns the properties in insertion order.
	Properties() []logtree.Property
	// AddOrUpdateProperty replaces the property with the same name in place,
	// or appends it.
	AddOrUpdateProperty(p logtree.Property)
}

// Enricher post-processes the properties of an event.
type Enricher interface {
	Enrich(ps PropertySet)
}

// EnricherFunc adapts a function to Enricher.
type EnricherFunc func(ps PropertySet)

// Enrich calls f(ps).
func (f EnricherFunc) Enrich(ps PropertySet) {
	f(ps)
}

// Event is a single log event. It is not safe for concurrent use; the
// pipeline hands each event to one goroutine at a time.
type Event struct {
	ID        ulid.ULID
	Timestamp time.Time
	Level     slog.Level
	Message   string

	props []logtree.Property
	index map[string]int
}

// New creates an event with a fresh ID.
func New(ts time.Time, level slog.Level, msg string) *Event {
	return &Event{
		ID:        ulid.Make(),
		Timestamp: ts,
		Level:     level,
		Message:   msg,
		index:     make(map[string]int),
	}
}

// Properties returns a copy of the properties in insertion order.
func (e *Event) Properties() []logtree.Property {
	return slices.Clone(e.props)
}

// Len returns the number of properties.
func (e *Event) Len() int {
	return len(e.props)
}

// Property returns the value of the named property.
func (e *Event) Property(name string) (logtree.Node, bool) {
	i, ok := e.index[name]
	if !ok {
		return nil, false
	}
	return e.props[i].Value, true
}

// AddOrUpdateProperty implements PropertySet.
func (e *Event) AddOrUpdateProperty(p logtree.Property) {
	if e.index == nil {
		e.index = make(map[string]int)
	}
	if i, ok := e.index[p.Name]; ok {
		e.props[i] = p
		return
	}
	e.index[p.Name] = len(e.props)
	e.props = append(e.props, p)
}

// AddPropertyIfAbsent adds p unless a property of that name exists. It
// reports whether p was added.
func (e *Event) AddPropertyIfAbsent(p logtree.Property) bool {
	if _, ok := e.index[p.Name]; ok {
		return false
	}
	e.AddOrUpdateProperty(p)
	return true
}

// RemoveProperty deletes the named property, keeping the order of the rest.
func (e *Event) RemoveProperty(name string) {
	i, ok := e.index[name]
	if !ok {
		return
	}
	e.props = slices.Delete(e.props, i, i+1)
	delete(e.index, name)
	for j := i; j < len(e.props); j++ {
		e.index[e.props[j].Name] = j
	}
}

// Enrich runs the enrichers over e in order.
func (e *Event) Enrich(enrichers ...Enricher) {
	for _, en := range enrichers {
		en.Enrich(e)
	}
}
