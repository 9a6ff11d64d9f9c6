package redaction

import (
	"reflect"
	"slices"

	"github.com/isseis/go-log-redactor/internal/logevent"
	"github.com/isseis/go-log-redactor/internal/logtree"
	"github.com/isseis/go-log-redactor/internal/redacted"
	"github.com/isseis/go-log-redactor/internal/sensitivity"
)

// Enricher redacts the properties of an event after destructuring. Structure
// types are taken from StructureValue.Type when the producer set it, and
// otherwise resolved from the type tag through the configured catalog.
// Structures whose type cannot be resolved are left unchanged.
//
// Enrich is idempotent and safe for concurrent use on distinct events.
type Enricher struct {
	cfg Config
}

// NewEnricher creates an Enricher.
func NewEnricher(opts ...Option) *Enricher {
	return &Enricher{cfg: newConfig(opts)}
}

// Placeholder returns the text sensitive values are replaced with.
func (e *Enricher) Placeholder() string {
	return e.cfg.Placeholder
}

// Enrich implements logevent.Enricher. Only properties whose tree changed are
// written back.
func (e *Enricher) Enrich(ps logevent.PropertySet) {
	for _, p := range ps.Properties() {
		if redactedNode := e.Redact(p.Value); redactedNode != p.Value {
			ps.AddOrUpdateProperty(logtree.Prop(p.Name, redactedNode))
		}
	}
}

// Redact returns n with sensitive values replaced. It returns n itself when
// nothing changed and never modifies n.
func (e *Enricher) Redact(n logtree.Node) logtree.Node {
	if logtree.IsNull(n) {
		return n
	}

	switch v := n.(type) {
	case *logtree.ScalarValue:
		return e.redactScalar(v)
	case *logtree.StructureValue:
		return e.redactStructure(v)
	case *logtree.SequenceValue:
		return e.redactSequence(v)
	}
	return n
}

// redactScalar handles a scalar that still carries a raw value: a
// redacted.Value, or a struct with sensitive fields logged without being
// destructured.
func (e *Enricher) redactScalar(s *logtree.ScalarValue) logtree.Node {
	if redacted.IsNil(s.Value) {
		return s
	}
	if w, ok := s.Value.(redacted.Wrapper); ok {
		if w.Absent() {
			return logtree.Null()
		}
		return e.placeholder(s)
	}
	if e.cfg.Registry.HasSensitiveFields(reflect.TypeOf(s.Value)) {
		return e.placeholder(s)
	}
	return s
}

func (e *Enricher) redactStructure(s *logtree.StructureValue) logtree.Node {
	// Untagged structures are maps and attribute groups: no field of their own
	// is sensitive, but their children are still walked.
	if s.Type == nil && s.TypeTag == "" {
		return e.redactFields(s, sensitivity.FieldSet{})
	}

	t, ok := e.resolve(s)
	if !ok {
		return s
	}
	return e.redactFields(s, e.cfg.Registry.Lookup(t))
}

func (e *Enricher) resolve(s *logtree.StructureValue) (reflect.Type, bool) {
	if s.Type != nil {
		return s.Type, true
	}
	t, ok := e.cfg.Catalog.Resolve(s.TypeTag)
	if !ok {
		e.cfg.log().Debug("Type tag not resolved - structure left unchanged",
			"type_tag", s.TypeTag,
		)
	}
	return t, ok
}

func (e *Enricher) redactFields(s *logtree.StructureValue, sensitive sensitivity.FieldSet) logtree.Node {
	var props []logtree.Property
	for i, p := range s.Properties {
		v := e.redactField(p, sensitive)
		if v == p.Value {
			continue
		}
		if props == nil {
			props = slices.Clone(s.Properties)
		}
		props[i].Value = v
	}

	if props == nil {
		return s
	}
	return &logtree.StructureValue{TypeTag: s.TypeTag, Type: s.Type, Properties: props}
}

// redactField returns the redacted value of p. A sensitive name is checked
// before the value is walked, so a structure or sequence under a sensitive
// name becomes a single placeholder.
func (e *Enricher) redactField(p logtree.Property, sensitive sensitivity.FieldSet) logtree.Node {
	if isAbsentNode(p.Value) {
		if s, ok := p.Value.(*logtree.ScalarValue); ok && s != nil && s.Value == nil {
			return s
		}
		return logtree.Null()
	}

	if sensitive.Contains(p.Name) {
		return e.placeholder(p.Value)
	}

	return e.Redact(p.Value)
}

func (e *Enricher) redactSequence(s *logtree.SequenceValue) logtree.Node {
	var elems []logtree.Node
	for i, el := range s.Elements {
		v := e.Redact(el)
		if v == el {
			continue
		}
		if elems == nil {
			elems = slices.Clone(s.Elements)
		}
		elems[i] = v
	}

	if elems == nil {
		return s
	}
	return logtree.Sequence(elems...)
}

// placeholder returns a placeholder scalar, reusing n when it already is one.
func (e *Enricher) placeholder(n logtree.Node) logtree.Node {
	if s, ok := n.(*logtree.ScalarValue); ok && s != nil && s.Value == e.cfg.Placeholder {
		return s
	}
	return logtree.Scalar(e.cfg.Placeholder)
}

func isAbsentNode(n logtree.Node) bool {
	if logtree.IsNull(n) {
		return true
	}
	s, ok := n.(*logtree.ScalarValue)
	return ok && isAbsent(s.Value)
}
