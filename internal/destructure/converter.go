// Package destructure converts live Go values into logtree nodes.
//
// A Converter is the pipeline's generic destructurer. It offers each value to
// the configured policies first and falls back to reflection when none of
// them handles it. Policies receive the Converter back as their
// logtree.ValueFactory, so nested values re-enter the same policies.
package destructure

import (
	"bytes"
	"encoding"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sort"
	"time"

	"github.com/isseis/go-log-redactor/internal/logtree"
	"github.com/isseis/go-log-redactor/internal/redacted"
	"github.com/isseis/go-log-redactor/internal/sensitivity"
)

// DefaultMaxDepth is the default nesting limit of a destructured tree.
const DefaultMaxDepth = 10

// FailurePlaceholder replaces a value whose conversion panicked.
const FailurePlaceholder = "[DESTRUCTURING FAILED - OUTPUT SUPPRESSED]"

// Policy converts values it recognises. It returns false to leave the value
// to the next policy or to the default conversion.
type Policy interface {
	TryDestructure(value any, factory logtree.ValueFactory) (logtree.Node, bool)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(value any, factory logtree.ValueFactory) (logtree.Node, bool)

// TryDestructure calls f(value, factory).
func (f PolicyFunc) TryDestructure(value any, factory logtree.ValueFactory) (logtree.Node, bool) {
	return f(value, factory)
}

// FailureRecorder receives conversion failures, keyed by property name.
type FailureRecorder interface {
	RecordFailure(key string, err error)
}

// Converter is safe for concurrent use once constructed.
type Converter struct {
	policies []Policy
	maxDepth int
	registry *sensitivity.Registry
	logger   *slog.Logger
	failures FailureRecorder
}

// Option configures a Converter.
type Option func(*Converter)

// WithPolicies appends destructuring policies. They are consulted in order.
func WithPolicies(policies ...Policy) Option {
	return func(c *Converter) {
		for _, p := range policies {
			if p != nil {
				c.policies = append(c.policies, p)
			}
		}
	}
}

// WithMaxDepth sets the nesting limit. Values below one are ignored.
func WithMaxDepth(depth int) Option {
	return func(c *Converter) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithRegistry sets the registry used to enumerate struct fields.
func WithRegistry(r *sensitivity.Registry) Option {
	return func(c *Converter) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithLogger sets the logger for diagnostics. By default slog.Default() is
// used at the time of the message.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithFailureRecorder sets where conversion failures are reported.
func WithFailureRecorder(r FailureRecorder) Option {
	return func(c *Converter) {
		c.failures = r
	}
}

// New creates a Converter.
func New(opts ...Option) *Converter {
	c := &Converter{
		maxDepth: DefaultMaxDepth,
		registry: sensitivity.Default,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry used to enumerate struct fields.
func (c *Converter) Registry() *sensitivity.Registry {
	return c.registry
}

// MaxDepth returns the configured nesting limit.
func (c *Converter) MaxDepth() int {
	return c.maxDepth
}

// CreatePropertyValue implements logtree.ValueFactory.
func (c *Converter) CreatePropertyValue(value any) logtree.Node {
	return c.convert(value, state{})
}

// Convert converts the value of the property named key. The key only labels
// diagnostics.
func (c *Converter) Convert(key string, value any) logtree.Node {
	return c.convert(value, state{key: key})
}

// state tracks one conversion as it descends into a value.
type state struct {
	key   string
	depth int
}

func (s state) next() state {
	return state{key: s.key, depth: s.depth + 1}
}

// factory is handed to policies so that values they delegate are converted
// one level deeper than the value the policy is handling.
type factory struct {
	c  *Converter
	st state
}

func (f factory) CreatePropertyValue(value any) logtree.Node {
	return f.c.convert(value, f.st)
}

func (c *Converter) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

func (c *Converter) convert(value any, st state) logtree.Node {
	if value == nil || redacted.IsNil(value) {
		return logtree.Null()
	}

	if st.depth > c.maxDepth {
		c.log().Debug("Destructuring depth limit reached - value dropped",
			"attribute_key", st.key,
			"depth", c.maxDepth,
			"type", fmt.Sprintf("%T", value),
		)
		return logtree.Null()
	}

	if n, ok := value.(logtree.Node); ok {
		return n
	}

	for _, p := range c.policies {
		if n, ok := p.TryDestructure(value, factory{c: c, st: st.next()}); ok {
			return n
		}
	}

	return c.convertDefault(value, st)
}

func (c *Converter) convertDefault(value any, st state) logtree.Node {
	switch v := value.(type) {
	case redacted.Wrapper:
		// Kept raw so that enrichers can still recognise the wrapper.
		if v.Absent() {
			return logtree.Null()
		}
		return logtree.Scalar(value)
	case slog.LogValuer:
		return c.convertLogValuer(v, st)
	case error:
		// An error with sensitive fields stays raw: its message may embed them.
		if c.registry.HasSensitiveFields(reflect.TypeOf(value)) {
			return logtree.Scalar(value)
		}
		return logtree.Scalar(v.Error())
	case time.Time:
		return logtree.Scalar(v)
	case encoding.TextMarshaler:
		return logtree.Scalar(value)
	}

	rv := reflect.ValueOf(value)
	if isScalarKind(rv.Kind()) {
		return logtree.Scalar(value)
	}

	return c.convertReflect(rv, st)
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

func (c *Converter) convertReflect(rv reflect.Value, st state) logtree.Node {
	hops := 0
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return logtree.Null()
		}
		if hops >= c.maxDepth {
			c.log().Debug("Destructuring depth limit reached following pointers",
				"attribute_key", st.key,
				"depth", c.maxDepth,
			)
			return logtree.Null()
		}
		rv = rv.Elem()
		hops++
	}
	if hops > 0 {
		// The dereferenced value may be a scalar, a LogValuer or a type a
		// policy handles.
		return c.convert(rv.Interface(), st)
	}

	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return logtree.Null()
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return logtree.Scalar(bytes.Clone(rv.Bytes()))
		}
		return c.convertSequence(rv, st)

	case reflect.Array:
		return c.convertSequence(rv, st)

	case reflect.Map:
		if rv.IsNil() {
			return logtree.Null()
		}
		return c.convertMap(rv, st)

	case reflect.Struct:
		return c.convertStruct(rv, st)

	default:
		// Functions, channels and unsafe pointers carry nothing loggable.
		return logtree.Scalar(rv.Type().String())
	}
}

func (c *Converter) convertSequence(rv reflect.Value, st state) logtree.Node {
	elems := make([]logtree.Node, rv.Len())
	next := st.next()
	for i := range elems {
		elems[i] = c.convert(rv.Index(i).Interface(), next)
	}
	return logtree.Sequence(elems...)
}

func (c *Converter) convertMap(rv reflect.Value, st state) logtree.Node {
	type entry struct {
		name  string
		value reflect.Value
	}

	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, entry{name: fmt.Sprint(iter.Key().Interface()), value: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	props := make([]logtree.Property, len(entries))
	next := st.next()
	for i, e := range entries {
		props[i] = logtree.Prop(e.name, c.convert(e.value.Interface(), next))
	}
	return logtree.Structure("", props...)
}

func (c *Converter) convertStruct(rv reflect.Value, st state) logtree.Node {
	t := rv.Type()
	fields := c.registry.Fields(t)

	props := make([]logtree.Property, 0, len(fields))
	next := st.next()
	for _, f := range fields {
		v, err := f.Read(rv)
		if err != nil {
			c.log().Debug("Skipping unreadable field",
				"attribute_key", st.key,
				"type", t.String(),
				"error", err,
			)
			continue
		}
		props = append(props, logtree.Prop(f.Name, c.convert(v, next)))
	}

	return logtree.TypedStructure(t, t.Name(), props...)
}

// convertLogValuer resolves v and converts the result. A panic in LogValue is
// recovered and replaced by FailurePlaceholder.
func (c *Converter) convertLogValuer(v slog.LogValuer, st state) (n logtree.Node) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := string(debug.Stack())
			c.log().Warn("Destructuring failed due to panic in LogValue()",
				"attribute_key", st.key,
				"panic", rec,
			)
			if c.failures != nil {
				c.failures.RecordFailure(st.key, &ErrLogValuePanic{
					Key:        st.key,
					PanicValue: rec,
					StackTrace: stack,
				})
			}
			n = logtree.Scalar(FailurePlaceholder)
		}
	}()

	return c.fromSlog(v.LogValue().Resolve(), st)
}

// fromSlog converts a resolved slog.Value.
func (c *Converter) fromSlog(v slog.Value, st state) logtree.Node {
	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		props := make([]logtree.Property, 0, len(attrs))
		next := st.next()
		for _, a := range attrs {
			if a.Equal(slog.Attr{}) {
				continue
			}
			props = append(props, logtree.Prop(a.Key, c.fromSlog(a.Value.Resolve(), next)))
		}
		return logtree.Structure("", props...)

	case slog.KindAny:
		return c.convert(v.Any(), st.next())

	default:
		return logtree.Scalar(v.Any())
	}
}
