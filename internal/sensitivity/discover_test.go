package sensitivity

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type withEmbeddedPointer struct {
	*Audit
	Name string
}

func TestIsSensitiveTag(t *testing.T) {
	tests := []struct {
		tag      reflect.StructTag
		expected bool
	}{
		{tag: `sensitive:"true"`, expected: true},
		{tag: `json:"ssn" sensitive:"true"`, expected: true},
		{tag: `sensitive:"TRUE"`, expected: true},
		{tag: `sensitive:"false"`, expected: false},
		{tag: `sensitive:""`, expected: false},
		{tag: `json:"sensitive"`, expected: false},
		{tag: ``, expected: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSensitiveTag(tt.tag))
		})
	}
}

func TestFieldDescriptor_Read(t *testing.T) {
	fields := NewRegistry().Fields(reflect.TypeFor[withEmbeddedPointer]())
	require.Len(t, fields, 3)

	t.Run("value through embedded pointer", func(t *testing.T) {
		v := withEmbeddedPointer{Audit: &Audit{Actor: "alice"}, Name: "n"}

		got, err := fields[0].Read(reflect.ValueOf(v))
		require.NoError(t, err)
		assert.Equal(t, "alice", got)
	})

	t.Run("nil embedded pointer", func(t *testing.T) {
		v := withEmbeddedPointer{Name: "n"}

		_, err := fields[0].Read(reflect.ValueOf(v))
		require.ErrorIs(t, err, ErrFieldUnreadable)

		got, err := fields[2].Read(reflect.ValueOf(&v))
		require.NoError(t, err)
		assert.Equal(t, "n", got)
	})

	t.Run("nil struct pointer", func(t *testing.T) {
		var v *withEmbeddedPointer

		_, err := fields[2].Read(reflect.ValueOf(v))
		assert.ErrorIs(t, err, ErrFieldUnreadable)
	})
}
