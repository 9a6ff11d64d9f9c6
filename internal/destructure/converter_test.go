package destructure

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-log-redactor/internal/logtree"
	"github.com/isseis/go-log-redactor/internal/redacted"
)

type level string

type address struct {
	City string
	Zip  string
}

type customer struct {
	Name    string
	Address *address
	Tags    []string
	secret  string //nolint:unused // unexported fields are never read
}

type Base struct {
	ID int
}

type derived struct {
	Base
	Label string
}

type link struct {
	N    int
	Next *link
}

type userValuer struct {
	Name string
}

func (u userValuer) LogValue() slog.Value {
	return slog.GroupValue(slog.String("name", u.Name), slog.Int("len", len(u.Name)))
}

type panicValuer struct{}

func (panicValuer) LogValue() slog.Value {
	panic("boom")
}

type tokenError struct {
	Token string `sensitive:"true"`
}

func (e tokenError) Error() string {
	return "auth failed token=" + e.Token
}

type recorder struct {
	keys []string
	errs []error
}

func (r *recorder) RecordFailure(key string, err error) {
	r.keys = append(r.keys, key)
	r.errs = append(r.errs, err)
}

func TestConverter_Scalars(t *testing.T) {
	c := New()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		value    any
		expected logtree.Node
	}{
		{name: "nil", value: nil, expected: logtree.Null()},
		{name: "typed nil pointer", value: (*customer)(nil), expected: logtree.Null()},
		{name: "string", value: "hello", expected: logtree.Scalar("hello")},
		{name: "int keeps type", value: int64(42), expected: logtree.Scalar(int64(42))},
		{name: "named string type", value: level("info"), expected: logtree.Scalar(level("info"))},
		{name: "bool", value: true, expected: logtree.Scalar(true)},
		{name: "pointer to scalar", value: new(int), expected: logtree.Scalar(0)},
		{name: "error", value: errors.New("failed"), expected: logtree.Scalar("failed")},
		{name: "time", value: now, expected: logtree.Scalar(now)},
		{name: "bytes", value: []byte("ab"), expected: logtree.Scalar([]byte("ab"))},
		{name: "func", value: func() {}, expected: logtree.Scalar("func()")},
		{name: "nil map", value: map[string]int(nil), expected: logtree.Null()},
		{name: "nil slice", value: []string(nil), expected: logtree.Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.CreatePropertyValue(tt.value)
			assert.True(t, logtree.Equal(tt.expected, got), "got %v", got)
		})
	}
}

func TestConverter_Struct(t *testing.T) {
	c := New()

	got := c.CreatePropertyValue(&customer{
		Name:    "alice",
		Address: &address{City: "Tokyo", Zip: "100"},
		Tags:    []string{"a", "b"},
	})

	expected := logtree.Structure("customer",
		logtree.Prop("Name", logtree.Scalar("alice")),
		logtree.Prop("Address", logtree.Structure("address",
			logtree.Prop("City", logtree.Scalar("Tokyo")),
			logtree.Prop("Zip", logtree.Scalar("100")),
		)),
		logtree.Prop("Tags", logtree.Sequence(logtree.Scalar("a"), logtree.Scalar("b"))),
	)
	assert.True(t, logtree.Equal(expected, got), "got %v", got)

	s, ok := got.(*logtree.StructureValue)
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[customer](), s.Type)
}

func TestConverter_NilNestedPointer(t *testing.T) {
	got := New().CreatePropertyValue(customer{Name: "bob"})

	s, ok := got.(*logtree.StructureValue)
	require.True(t, ok)
	addr, ok := s.Property("Address")
	require.True(t, ok)
	assert.True(t, logtree.IsNull(addr))
}

func TestConverter_PromotedFields(t *testing.T) {
	got := New().CreatePropertyValue(derived{Base: Base{ID: 7}, Label: "x"})

	expected := logtree.Structure("derived",
		logtree.Prop("ID", logtree.Scalar(7)),
		logtree.Prop("Label", logtree.Scalar("x")),
	)
	assert.True(t, logtree.Equal(expected, got), "got %v", got)
}

func TestConverter_MapKeysAreSorted(t *testing.T) {
	got := New().CreatePropertyValue(map[string]int{"b": 2, "a": 1, "c": 3})

	expected := logtree.Structure("",
		logtree.Prop("a", logtree.Scalar(1)),
		logtree.Prop("b", logtree.Scalar(2)),
		logtree.Prop("c", logtree.Scalar(3)),
	)
	assert.True(t, logtree.Equal(expected, got), "got %v", got)
}

func TestConverter_Array(t *testing.T) {
	got := New().CreatePropertyValue([2]int{1, 2})
	assert.True(t, logtree.Equal(logtree.Sequence(logtree.Scalar(1), logtree.Scalar(2)), got))
}

func TestConverter_CycleIsCutAtMaxDepth(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l := &link{N: 1}
	l.Next = l

	got := New(WithMaxDepth(3), WithLogger(logger)).Convert("chain", l)

	levels := 0
	for n := got; !logtree.IsNull(n); levels++ {
		s, ok := n.(*logtree.StructureValue)
		require.True(t, ok)
		n, ok = s.Property("Next")
		require.True(t, ok)
	}
	assert.Equal(t, 4, levels, "structures at depth 0 through 3")
	assert.Contains(t, logBuf.String(), "depth limit reached")
	assert.Contains(t, logBuf.String(), "attribute_key=chain")
}

func TestConverter_SelfReferentialInterface(t *testing.T) {
	var x any
	x = &x

	got := New(WithLogger(slog.New(slog.DiscardHandler))).CreatePropertyValue(x)
	assert.True(t, logtree.IsNull(got))
}

func TestConverter_WithMaxDepthIgnoresInvalid(t *testing.T) {
	assert.Equal(t, DefaultMaxDepth, New(WithMaxDepth(0)).MaxDepth())
	assert.Equal(t, 5, New(WithMaxDepth(5)).MaxDepth())
}

func TestConverter_PoliciesReenterForNestedValues(t *testing.T) {
	var seen []string
	policy := PolicyFunc(func(value any, factory logtree.ValueFactory) (logtree.Node, bool) {
		a, ok := value.(*address)
		if !ok {
			return nil, false
		}
		seen = append(seen, a.City)
		return logtree.Structure("Addr", logtree.Prop("City", factory.CreatePropertyValue(a.City))), true
	})
	declined := PolicyFunc(func(any, logtree.ValueFactory) (logtree.Node, bool) {
		return nil, false
	})

	c := New(WithPolicies(declined, nil, policy))
	got := c.CreatePropertyValue(customer{Name: "carol", Address: &address{City: "Osaka"}})

	addr, ok := got.(*logtree.StructureValue).Property("Address")
	require.True(t, ok)
	assert.True(t, logtree.Equal(logtree.Structure("Addr", logtree.Prop("City", logtree.Scalar("Osaka"))), addr))
	assert.Equal(t, []string{"Osaka"}, seen)
}

func TestConverter_NodePassesThrough(t *testing.T) {
	n := logtree.Scalar("already")
	assert.Same(t, n, New().CreatePropertyValue(n))
}

func TestConverter_RedactedWrapperStaysRaw(t *testing.T) {
	c := New()

	w := redacted.New("secret")
	got, ok := c.CreatePropertyValue(w).(*logtree.ScalarValue)
	require.True(t, ok)
	assert.Equal(t, w, got.Value)

	assert.True(t, logtree.IsNull(c.CreatePropertyValue(redacted.New[*string](nil))))
}

func TestConverter_ErrorWithSensitiveFieldsStaysRaw(t *testing.T) {
	err := tokenError{Token: "tok-123"}

	got, ok := New().CreatePropertyValue(err).(*logtree.ScalarValue)
	require.True(t, ok)
	assert.Equal(t, err, got.Value, "the message is not rendered")

	got, ok = New().CreatePropertyValue(&err).(*logtree.ScalarValue)
	require.True(t, ok)
	assert.Equal(t, &err, got.Value)
}

func TestConverter_LogValuer(t *testing.T) {
	got := New().CreatePropertyValue(userValuer{Name: "dave"})

	expected := logtree.Structure("",
		logtree.Prop("name", logtree.Scalar("dave")),
		logtree.Prop("len", logtree.Scalar(int64(4))),
	)
	assert.True(t, logtree.Equal(expected, got), "got %v", got)
}

func TestConverter_LogValuerPanicIsRecovered(t *testing.T) {
	rec := &recorder{}
	c := New(WithFailureRecorder(rec), WithLogger(slog.New(slog.DiscardHandler)))

	got := c.Convert("user", panicValuer{})

	assert.True(t, logtree.Equal(logtree.Scalar(FailurePlaceholder), got))
	require.Len(t, rec.errs, 1)
	assert.Equal(t, []string{"user"}, rec.keys)

	var panicErr *ErrLogValuePanic
	require.ErrorAs(t, rec.errs[0], &panicErr)
	assert.Equal(t, "boom", panicErr.PanicValue)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Contains(t, panicErr.Error(), `"user"`)
}
