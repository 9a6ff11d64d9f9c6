package sensitivity

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
)

// TagKey is the struct tag key that marks a field as sensitive.
const TagKey = "sensitive"

// Discover enumerates the visible fields of a struct type in declaration
// order, promoted fields included. Non-struct types have no fields.
// A field promoted through a sensitive embedded struct is sensitive.
func Discover(t reflect.Type) []FieldDescriptor {
	t = Indirect(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	visible := reflect.VisibleFields(t)
	fields := make([]FieldDescriptor, 0, len(visible))
	var sensitiveEmbeds [][]int
	for _, f := range visible {
		sensitive := IsSensitiveTag(f.Tag) || promotedFrom(f.Index, sensitiveEmbeds)
		if sensitive && f.Anonymous {
			sensitiveEmbeds = append(sensitiveEmbeds, f.Index)
		}
		fields = append(fields, FieldDescriptor{
			Name:      f.Name,
			Index:     f.Index,
			Sensitive: sensitive,
			Readable:  isReadable(f),
		})
	}

	return fields
}

// promotedFrom reports whether index lies under one of the embedded field
// paths in embeds.
func promotedFrom(index []int, embeds [][]int) bool {
	for _, e := range embeds {
		if len(index) > len(e) && slices.Equal(index[:len(e)], e) {
			return true
		}
	}
	return false
}

// IsSensitiveTag reports whether tag marks the field as sensitive.
// Any value accepted by strconv.ParseBool is honoured; `sensitive:"true"` is
// the canonical form.
func IsSensitiveTag(tag reflect.StructTag) bool {
	value, ok := tag.Lookup(TagKey)
	if !ok {
		return false
	}
	sensitive, err := strconv.ParseBool(value)
	return err == nil && sensitive
}

// isReadable reports whether the field value can be logged on its own.
// Embedded structs are containers: their exported fields are promoted and
// listed separately.
func isReadable(f reflect.StructField) bool {
	if !f.IsExported() {
		return false
	}
	if f.Anonymous && Indirect(f.Type).Kind() == reflect.Struct {
		return false
	}
	return true
}

// ErrFieldUnreadable is returned by FieldDescriptor.Read when the field value
// cannot be obtained, for example through a nil embedded pointer.
var ErrFieldUnreadable = errors.New("field is not readable")

// Read returns the value of the field in v, which must be a struct value of
// the type the descriptor was discovered from (pointers are followed).
func (f FieldDescriptor) Read(v reflect.Value) (any, error) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: %s: nil pointer", ErrFieldUnreadable, f.Name)
		}
		v = v.Elem()
	}

	fv, err := v.FieldByIndexErr(f.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFieldUnreadable, f.Name, err)
	}
	if !fv.CanInterface() {
		return nil, fmt.Errorf("%w: %s: unexported", ErrFieldUnreadable, f.Name)
	}

	return fv.Interface(), nil
}
