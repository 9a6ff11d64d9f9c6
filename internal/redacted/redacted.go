// Package redacted provides a generic wrapper for values that must never be
// rendered in clear text.
//
// A struct field can be marked sensitive with a tag, but a bare scalar has no
// field metadata of its own. Wrapping it in a Value is the only way to have a
// standalone scalar redacted:
//
//	password := redacted.New("P@ssw0rd!")
//	slog.Info("login", "password", password) // password=[REDACTED]
//	check(password.Get())                    // real value for program logic
package redacted

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
)

// DefaultPlaceholder is the text rendered in place of a redacted value.
const DefaultPlaceholder = "[REDACTED]"

// Wrapper is implemented by Value for every T. It lets callers that only hold
// an `any` detect a wrapped value and whether it carries anything at all.
type Wrapper interface {
	// Absent reports whether the wrapped value is nil.
	Absent() bool
	// Unwrap returns the wrapped value.
	Unwrap() any
}

// Value holds a value of type T that renders as DefaultPlaceholder.
type Value[T any] struct {
	value T
}

var _ Wrapper = Value[string]{}

// New wraps v.
func New[T any](v T) Value[T] {
	return Value[T]{value: v}
}

// Get returns the wrapped value.
func (v Value[T]) Get() T {
	return v.value
}

// Unwrap returns the wrapped value as any.
func (v Value[T]) Unwrap() any {
	return v.value
}

// Absent reports whether the wrapped value is nil. Only nilable kinds
// (pointers, interfaces, maps, slices, funcs, channels) can be absent; a zero
// int or an empty string is still a value.
func (v Value[T]) Absent() bool {
	return IsNil(v.value)
}

// String always returns DefaultPlaceholder.
func (v Value[T]) String() string {
	return DefaultPlaceholder
}

// GoString always returns DefaultPlaceholder, so %#v does not leak either.
func (v Value[T]) GoString() string {
	return DefaultPlaceholder
}

// Format implements fmt.Formatter so that every verb prints the placeholder.
func (v Value[T]) Format(f fmt.State, _ rune) {
	_, _ = fmt.Fprint(f, DefaultPlaceholder)
}

// LogValue implements slog.LogValuer. An absent value is logged as nil.
func (v Value[T]) LogValue() slog.Value {
	if v.Absent() {
		return slog.AnyValue(nil)
	}
	return slog.StringValue(DefaultPlaceholder)
}

// MarshalJSON encodes the placeholder, or null when the value is absent.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if v.Absent() {
		return []byte("null"), nil
	}
	return json.Marshal(DefaultPlaceholder)
}

// MarshalText encodes the placeholder for text based encoders.
func (v Value[T]) MarshalText() ([]byte, error) {
	return []byte(DefaultPlaceholder), nil
}

// UnmarshalJSON decodes the real value, so a Value can be loaded from
// configuration or request payloads.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &v.value)
}

// IsNil reports whether x is nil or a typed nil of a nilable kind.
func IsNil(x any) bool {
	if x == nil {
		return true
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
