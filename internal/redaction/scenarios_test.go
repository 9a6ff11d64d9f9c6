package redaction

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-log-redactor/internal/logevent"
	"github.com/isseis/go-log-redactor/internal/logtree"
	"github.com/isseis/go-log-redactor/internal/redacted"
)

// redactor runs a value through one of the two redaction paths.
type redactor struct {
	name string
	run  func(placeholder string, value any) logtree.Node
}

var redactors = []redactor{
	{
		name: "destructuring policy",
		run: func(placeholder string, value any) logtree.Node {
			return destructureWith(NewPolicy(WithPlaceholder(placeholder)), value)
		},
	},
	{
		name: "enricher",
		run: func(placeholder string, value any) logtree.Node {
			ev := logevent.New(time.Now(), slog.LevelInfo, "test")
			ev.AddOrUpdateProperty(logtree.Prop("value", destructurePlain(value)))
			NewEnricher(WithPlaceholder(placeholder), WithCatalog(testCatalog())).Enrich(ev)
			n, _ := ev.Property("value")
			return n
		},
	},
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected logtree.Node
	}{
		{
			name:  "sensitive field is redacted",
			value: TestObject{SensitiveData: ptr("SecretValue"), NonSensitiveData: "PublicValue"},
			expected: logtree.Structure("TestObject",
				logtree.Prop("SensitiveData", logtree.Scalar("[REDACTED]")),
				logtree.Prop("NonSensitiveData", logtree.Scalar("PublicValue")),
			),
		},
		{
			name:  "absent sensitive field stays null",
			value: TestObject{NonSensitiveData: "PublicValue"},
			expected: logtree.Structure("TestObject",
				logtree.Prop("SensitiveData", logtree.Null()),
				logtree.Prop("NonSensitiveData", logtree.Scalar("PublicValue")),
			),
		},
		{
			name: "sequence elements inside a nested structure",
			value: Container{
				Name: "box",
				Items: []CollectionItem{
					{Secret: "CollectionSecret1", Label: "first"},
					{Secret: "CollectionSecret2", Label: "second"},
				},
			},
			expected: logtree.Structure("Container",
				logtree.Prop("Name", logtree.Scalar("box")),
				logtree.Prop("Items", logtree.Sequence(
					logtree.Structure("CollectionItem",
						logtree.Prop("Secret", logtree.Scalar("[REDACTED]")),
						logtree.Prop("Label", logtree.Scalar("first")),
					),
					logtree.Structure("CollectionItem",
						logtree.Prop("Secret", logtree.Scalar("[REDACTED]")),
						logtree.Prop("Label", logtree.Scalar("second")),
					),
				)),
				logtree.Prop("Owner", logtree.Null()),
			),
		},
		{
			name:     "bare redacted scalar",
			value:    redacted.New(123456),
			expected: logtree.Scalar("[REDACTED]"),
		},
		{
			name: "collection of redacted scalars",
			value: []redacted.Value[string]{
				redacted.New("a"), redacted.New("b"), redacted.New("c"),
			},
			expected: logtree.Sequence(
				logtree.Scalar("[REDACTED]"),
				logtree.Scalar("[REDACTED]"),
				logtree.Scalar("[REDACTED]"),
			),
		},
	}

	for _, r := range redactors {
		for _, tt := range tests {
			t.Run(r.name+"/"+tt.name, func(t *testing.T) {
				got := r.run("", tt.value)
				assert.True(t, logtree.Equal(tt.expected, got), "got %v", got)
			})
		}
	}
}

func TestScenarios_CustomPlaceholder(t *testing.T) {
	const placeholder = "❌❌❌"

	value := Container{
		Name:  "box",
		Items: []CollectionItem{{Secret: "s1", Label: "l1"}},
		Owner: &TestObject{SensitiveData: ptr("owner secret"), NonSensitiveData: "pub"},
	}

	for _, r := range redactors {
		t.Run(r.name, func(t *testing.T) {
			got := r.run(placeholder, value)

			expected := logtree.Structure("Container",
				logtree.Prop("Name", logtree.Scalar("box")),
				logtree.Prop("Items", logtree.Sequence(
					logtree.Structure("CollectionItem",
						logtree.Prop("Secret", logtree.Scalar(placeholder)),
						logtree.Prop("Label", logtree.Scalar("l1")),
					),
				)),
				logtree.Prop("Owner", logtree.Structure("TestObject",
					logtree.Prop("SensitiveData", logtree.Scalar(placeholder)),
					logtree.Prop("NonSensitiveData", logtree.Scalar("pub")),
				)),
			)
			assert.True(t, logtree.Equal(expected, got), "got %v", got)
			assert.NotContains(t, got.(*logtree.StructureValue).String(), "[REDACTED]")

			wrapped := r.run(placeholder, redacted.New(42))
			assert.True(t, logtree.Equal(logtree.Scalar(placeholder), wrapped))
		})
	}
}

func TestScenarios_WrapperContract(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected logtree.Node
	}{
		{name: "int", value: redacted.New(7), expected: logtree.Scalar("[REDACTED]")},
		{name: "string", value: redacted.New("pw"), expected: logtree.Scalar("[REDACTED]")},
		{name: "empty string is present", value: redacted.New(""), expected: logtree.Scalar("[REDACTED]")},
		{name: "struct", value: redacted.New(Plain{A: "a"}), expected: logtree.Scalar("[REDACTED]")},
		{name: "pointer", value: redacted.New(ptr("x")), expected: logtree.Scalar("[REDACTED]")},
		{name: "nil pointer", value: redacted.New[*string](nil), expected: logtree.Null()},
		{name: "nil slice", value: redacted.New[[]string](nil), expected: logtree.Null()},
		{name: "nil interface", value: redacted.New[any](nil), expected: logtree.Null()},
	}

	for _, r := range redactors {
		for _, tt := range tests {
			t.Run(r.name+"/"+tt.name, func(t *testing.T) {
				got := r.run("", tt.value)
				require.NotNil(t, got)
				assert.True(t, logtree.Equal(tt.expected, got), "got %v", got)
			})
		}
	}
}
