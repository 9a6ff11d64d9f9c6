// Package sensitivity records which fields of a type are marked sensitive.
//
// A field is marked with the struct tag `sensitive:"true"`:
//
//	type Person struct {
//		Name string
//		SSN  string `sensitive:"true"`
//	}
//
// Lookups are memoized per type for the life of the process. Types are static,
// so an entry is never invalidated.
package sensitivity

import (
	"reflect"
	"sort"
	"sync"

	"golang.org/x/text/cases"
)

// FieldDescriptor describes one field of a struct type.
type FieldDescriptor struct {
	// Name is the Go field name.
	Name string
	// Index is the index sequence for reflect.Value.FieldByIndex.
	Index []int
	// Sensitive is true when the field carries the sensitive marker.
	Sensitive bool
	// Readable is false for fields that cannot be read through reflection
	// (unexported fields) and for embedded structs whose fields are promoted.
	Readable bool
}

// FieldSet is an immutable, case-insensitive set of field names.
type FieldSet struct {
	names map[string]struct{}
}

// NewFieldSet builds a FieldSet from names.
func NewFieldSet(names ...string) FieldSet {
	if len(names) == 0 {
		return FieldSet{}
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[foldName(n)] = struct{}{}
	}
	return FieldSet{names: set}
}

// Contains reports whether name is in the set, ignoring case.
func (s FieldSet) Contains(name string) bool {
	if len(s.names) == 0 {
		return false
	}
	_, ok := s.names[foldName(name)]
	return ok
}

// Len returns the number of names in the set.
func (s FieldSet) Len() int {
	return len(s.names)
}

// Empty reports whether the set has no names.
func (s FieldSet) Empty() bool {
	return len(s.names) == 0
}

// Names returns the case-folded names in sorted order.
func (s FieldSet) Names() []string {
	names := make([]string, 0, len(s.names))
	for n := range s.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// foldName case-folds a field name. A Caser carries state and must not be
// shared between goroutines, so one is created per call.
func foldName(name string) string {
	return cases.Fold().String(name)
}

// entry is the cached sensitivity of one type.
type entry struct {
	sensitive FieldSet
}

// noSensitiveFields is stored for every type without a sensitive field.
var noSensitiveFields = &entry{}

// Registry memoizes field metadata per type. It is safe for concurrent use.
// Concurrent first lookups of the same type may each run discovery; the first
// stored result wins and is returned to every caller afterwards.
type Registry struct {
	sensitive sync.Map // reflect.Type -> *entry
	fields    sync.Map // reflect.Type -> []FieldDescriptor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Default is the process-wide registry used when none is configured.
var Default = NewRegistry()

// SensitiveFields returns the names of the sensitive fields of t. On the first
// call for t it runs discover, drops unreadable fields and caches the result.
// A type without sensitive fields is cached as such and discover is not called
// for it again.
func (r *Registry) SensitiveFields(t reflect.Type, discover func() []FieldDescriptor) FieldSet {
	t = Indirect(t)
	if t == nil {
		return FieldSet{}
	}

	if cached, ok := r.sensitive.Load(t); ok {
		return cached.(*entry).sensitive
	}

	var names []string
	for _, f := range discover() {
		if f.Readable && f.Sensitive {
			names = append(names, f.Name)
		}
	}

	e := noSensitiveFields
	if len(names) > 0 {
		e = &entry{sensitive: NewFieldSet(names...)}
	}

	actual, _ := r.sensitive.LoadOrStore(t, e)
	return actual.(*entry).sensitive
}

// Lookup returns the sensitive fields of t using struct tag discovery.
func (r *Registry) Lookup(t reflect.Type) FieldSet {
	return r.SensitiveFields(t, func() []FieldDescriptor {
		return r.Fields(t)
	})
}

// HasSensitiveFields reports whether t has at least one sensitive field.
func (r *Registry) HasSensitiveFields(t reflect.Type) bool {
	return !r.Lookup(t).Empty()
}

// Fields returns the readable fields of t in declaration order. The result is
// cached and shared; callers must not modify it.
func (r *Registry) Fields(t reflect.Type) []FieldDescriptor {
	t = Indirect(t)
	if t == nil {
		return nil
	}

	if cached, ok := r.fields.Load(t); ok {
		return cached.([]FieldDescriptor)
	}

	all := Discover(t)
	readable := make([]FieldDescriptor, 0, len(all))
	for _, f := range all {
		if f.Readable {
			readable = append(readable, f)
		}
	}

	actual, _ := r.fields.LoadOrStore(t, readable)
	return actual.([]FieldDescriptor)
}

// Indirect strips pointer indirections from t.
func Indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
