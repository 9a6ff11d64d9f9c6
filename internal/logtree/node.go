// Package logtree defines the tree a log event property takes once it has been
// destructured: scalars, named-field structures and ordered sequences.
// Both redactors read and write this representation, and the logging backends
// render it.
package logtree

import (
	"reflect"
)

// Node is a destructured log property value. The set of implementations is
// closed: *ScalarValue, *StructureValue and *SequenceValue.
//
// A nil Node is treated as Scalar(nil) everywhere in this module.
type Node interface {
	isNode()
}

// ScalarValue holds a single value. Value keeps the original Go value (not a
// string rendering) so that later stages can still inspect its runtime type.
type ScalarValue struct {
	Value any
}

// Property is a named Node inside a structure or a log event.
type Property struct {
	Name  string
	Value Node
}

// StructureValue is an ordered list of uniquely named properties.
type StructureValue struct {
	// TypeTag names the type the structure was built from. It may be empty.
	TypeTag string
	// Type is the originating type when the producer had it available.
	// Consumers prefer it over resolving TypeTag by name.
	Type       reflect.Type
	Properties []Property
}

// SequenceValue is an ordered list of elements.
type SequenceValue struct {
	Elements []Node
}

func (*ScalarValue) isNode()    {}
func (*StructureValue) isNode() {}
func (*SequenceValue) isNode()  {}

// ValueFactory converts an arbitrary value into a Node. The logging pipeline
// supplies one to destructuring policies as their fallback converter; it may
// re-enter the same policies for nested values.
type ValueFactory interface {
	CreatePropertyValue(value any) Node
}

// ValueFactoryFunc adapts a function to ValueFactory.
type ValueFactoryFunc func(value any) Node

// CreatePropertyValue calls f(value).
func (f ValueFactoryFunc) CreatePropertyValue(value any) Node {
	return f(value)
}

// Scalar returns a scalar node holding v.
func Scalar(v any) *ScalarValue {
	return &ScalarValue{Value: v}
}

// Null returns a scalar node carrying an explicit absence.
func Null() *ScalarValue {
	return &ScalarValue{}
}

// Structure returns a structure node with the given type tag and properties.
func Structure(typeTag string, props ...Property) *StructureValue {
	return &StructureValue{TypeTag: typeTag, Properties: props}
}

// TypedStructure returns a structure node that also carries its originating type.
func TypedStructure(t reflect.Type, typeTag string, props ...Property) *StructureValue {
	return &StructureValue{TypeTag: typeTag, Type: t, Properties: props}
}

// Sequence returns a sequence node with the given elements.
func Sequence(elems ...Node) *SequenceValue {
	return &SequenceValue{Elements: elems}
}

// Prop is shorthand for Property{Name: name, Value: value}.
func Prop(name string, value Node) Property {
	return Property{Name: name, Value: value}
}

// IsNull reports whether n represents absence: a nil Node, a nil
// *ScalarValue, or a scalar whose value is nil.
func IsNull(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *ScalarValue:
		return v == nil || v.Value == nil
	default:
		return false
	}
}

// Property returns the value of the property with the given name.
func (s *StructureValue) Property(name string) (Node, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// Equal reports whether a and b describe the same tree. Structure types are
// compared by tag only; the carried reflect.Type is metadata.
func Equal(a, b Node) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}

	switch av := a.(type) {
	case *ScalarValue:
		bv, ok := b.(*ScalarValue)
		return ok && reflect.DeepEqual(av.Value, bv.Value)

	case *StructureValue:
		bv, ok := b.(*StructureValue)
		if !ok || av.TypeTag != bv.TypeTag || len(av.Properties) != len(bv.Properties) {
			return false
		}
		for i := range av.Properties {
			if av.Properties[i].Name != bv.Properties[i].Name {
				return false
			}
			if !Equal(av.Properties[i].Value, bv.Properties[i].Value) {
				return false
			}
		}
		return true

	case *SequenceValue:
		bv, ok := b.(*SequenceValue)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	}

	return false
}
