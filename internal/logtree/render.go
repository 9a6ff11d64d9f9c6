package logtree

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// TypeTagKey is the attribute key under which a structure's type tag is
// emitted when the tree is handed to slog.
const TypeTagKey = "_typeTag"

// String renders the scalar as it appears inside a structure: strings are
// quoted, nil is "null".
func (s *ScalarValue) String() string {
	var sb strings.Builder
	writeNode(&sb, s)
	return sb.String()
}

// String renders the structure as `Tag { Name: value, ... }`.
func (s *StructureValue) String() string {
	var sb strings.Builder
	writeNode(&sb, s)
	return sb.String()
}

// String renders the sequence as `[a, b]`.
func (s *SequenceValue) String() string {
	var sb strings.Builder
	writeNode(&sb, s)
	return sb.String()
}

func writeNode(sb *strings.Builder, n Node) {
	if IsNull(n) {
		sb.WriteString("null")
		return
	}

	switch v := n.(type) {
	case *ScalarValue:
		if str, ok := v.Value.(string); ok {
			sb.WriteString(strconv.Quote(str))
			return
		}
		fmt.Fprint(sb, v.Value)

	case *StructureValue:
		if v.TypeTag != "" {
			sb.WriteString(v.TypeTag)
			sb.WriteString(" ")
		}
		sb.WriteString("{ ")
		for i, p := range v.Properties {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Name)
			sb.WriteString(": ")
			writeNode(sb, p.Value)
		}
		sb.WriteString(" }")

	case *SequenceValue:
		sb.WriteString("[")
		for i, e := range v.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeNode(sb, e)
		}
		sb.WriteString("]")
	}
}

// LogValue implements slog.LogValuer.
func (s *ScalarValue) LogValue() slog.Value {
	return SlogValue(s)
}

// LogValue implements slog.LogValuer.
func (s *StructureValue) LogValue() slog.Value {
	return SlogValue(s)
}

// LogValue implements slog.LogValuer.
func (s *SequenceValue) LogValue() slog.Value {
	return SlogValue(s)
}

// SlogValue converts a tree into a slog.Value. Structures become groups with
// the type tag under TypeTagKey; sequences become a []any of plain values
// since slog has no list kind.
func SlogValue(n Node) slog.Value {
	if IsNull(n) {
		return slog.AnyValue(nil)
	}

	switch v := n.(type) {
	case *ScalarValue:
		return slog.AnyValue(v.Value)

	case *StructureValue:
		attrs := make([]slog.Attr, 0, len(v.Properties)+1)
		if v.TypeTag != "" {
			attrs = append(attrs, slog.String(TypeTagKey, v.TypeTag))
		}
		for _, p := range v.Properties {
			attrs = append(attrs, slog.Attr{Key: p.Name, Value: SlogValue(p.Value)})
		}
		return slog.GroupValue(attrs...)

	case *SequenceValue:
		return slog.AnyValue(Plain(v))
	}

	return slog.AnyValue(nil)
}

// Plain converts a tree into plain Go values suitable for encoding/json:
// scalars yield their value, structures a map[string]any (with TypeTagKey
// when tagged) and sequences a []any.
func Plain(n Node) any {
	if IsNull(n) {
		return nil
	}

	switch v := n.(type) {
	case *ScalarValue:
		return v.Value

	case *StructureValue:
		m := make(map[string]any, len(v.Properties)+1)
		if v.TypeTag != "" {
			m[TypeTagKey] = v.TypeTag
		}
		for _, p := range v.Properties {
			m[p.Name] = Plain(p.Value)
		}
		return m

	case *SequenceValue:
		elems := make([]any, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = Plain(e)
		}
		return elems
	}

	return nil
}
