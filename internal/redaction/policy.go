package redaction

import (
	"reflect"

	"github.com/isseis/go-log-redactor/internal/destructure"
	"github.com/isseis/go-log-redactor/internal/logtree"
	"github.com/isseis/go-log-redactor/internal/redacted"
	"github.com/isseis/go-log-redactor/internal/sensitivity"
)

// Policy is a destructuring policy that redacts while it converts. It handles
// redacted.Value wrappers and structs with at least one sensitive field, and
// declines everything else. It is safe for concurrent use.
type Policy struct {
	cfg Config
}

// NewPolicy creates a Policy.
func NewPolicy(opts ...Option) *Policy {
	return &Policy{cfg: newConfig(opts)}
}

// Placeholder returns the text sensitive values are replaced with.
func (p *Policy) Placeholder() string {
	return p.cfg.Placeholder
}

// TryDestructure implements destructure.Policy. Non-sensitive fields are
// converted with factory, which may re-enter this policy for nested values.
func (p *Policy) TryDestructure(value any, factory logtree.ValueFactory) (logtree.Node, bool) {
	if value == nil || redacted.IsNil(value) {
		return nil, false
	}

	if w, ok := value.(redacted.Wrapper); ok {
		if w.Absent() {
			return logtree.Null(), true
		}
		return logtree.Scalar(p.cfg.Placeholder), true
	}

	t := reflect.TypeOf(value)
	sensitive := p.cfg.Registry.Lookup(t)
	if sensitive.Empty() {
		return nil, false
	}

	if factory == nil {
		factory = destructure.New(
			destructure.WithPolicies(p),
			destructure.WithRegistry(p.cfg.Registry),
		)
	}

	rv := reflect.ValueOf(value)
	fields := p.cfg.Registry.Fields(t)
	props := make([]logtree.Property, 0, len(fields))
	for _, f := range fields {
		v, err := f.Read(rv)
		if err != nil {
			p.cfg.log().Debug("Skipping unreadable field",
				"type", t.String(),
				"error", err,
			)
			continue
		}

		switch {
		case !sensitive.Contains(f.Name):
			props = append(props, logtree.Prop(f.Name, factory.CreatePropertyValue(v)))
		case isAbsent(v):
			props = append(props, logtree.Prop(f.Name, logtree.Null()))
		default:
			props = append(props, logtree.Prop(f.Name, logtree.Scalar(p.cfg.Placeholder)))
		}
	}

	st := sensitivity.Indirect(t)
	return logtree.TypedStructure(st, st.Name(), props...), true
}
