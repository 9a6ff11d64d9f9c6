// Package zaplog applies the redaction pipeline to go.uber.org/zap loggers.
// Values logged with zap.Any or zap.Reflect are destructured and enriched
// before they reach the wrapped core; all other fields pass through.
package zaplog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/isseis/go-log-redactor/internal/logtree"
)

// Field converts a destructured tree into a zap field.
func Field(key string, n logtree.Node) zap.Field {
	if logtree.IsNull(n) {
		return zap.Reflect(key, nil)
	}

	switch v := n.(type) {
	case *logtree.StructureValue:
		return zap.Object(key, structure{v})
	case *logtree.SequenceValue:
		return zap.Array(key, sequence{v})
	case *logtree.ScalarValue:
		return scalarField(key, v.Value)
	}
	return zap.Reflect(key, nil)
}

// scalarField encodes a scalar without letting zap reflect into it again.
func scalarField(key string, v any) zap.Field {
	f := zap.Any(key, v)
	if f.Type == zapcore.ReflectType {
		return zap.Stringer(key, scalarString{v})
	}
	return f
}

// structure adapts a StructureValue to zapcore.ObjectMarshaler.
type structure struct {
	s *logtree.StructureValue
}

func (o structure) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if o.s.TypeTag != "" {
		enc.AddString(logtree.TypeTagKey, o.s.TypeTag)
	}
	for _, p := range o.s.Properties {
		Field(p.Name, p.Value).AddTo(enc)
	}
	return nil
}

// sequence adapts a SequenceValue to zapcore.ArrayMarshaler.
type sequence struct {
	s *logtree.SequenceValue
}

func (a sequence) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, e := range a.s.Elements {
		if err := appendNode(enc, e); err != nil {
			return err
		}
	}
	return nil
}

func appendNode(enc zapcore.ArrayEncoder, n logtree.Node) error {
	if logtree.IsNull(n) {
		return enc.AppendReflected(nil)
	}

	switch v := n.(type) {
	case *logtree.StructureValue:
		return enc.AppendObject(structure{v})
	case *logtree.SequenceValue:
		return enc.AppendArray(sequence{v})
	case *logtree.ScalarValue:
		switch x := v.Value.(type) {
		case string:
			enc.AppendString(x)
		case bool:
			enc.AppendBool(x)
		case int:
			enc.AppendInt(x)
		case int64:
			enc.AppendInt64(x)
		case uint64:
			enc.AppendUint64(x)
		case float64:
			enc.AppendFloat64(x)
		default:
			enc.AppendString(scalarString{x}.String())
		}
	}
	return nil
}

// scalarString renders a scalar that zap would otherwise reflect.
type scalarString struct {
	v any
}

func (s scalarString) String() string {
	return logtree.Scalar(s.v).String()
}
