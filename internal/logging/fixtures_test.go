package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isseis/go-log-redactor/internal/redacted"
)

type account struct {
	Password *string `sensitive:"true"`
	Username string
}

type credentials struct {
	Login redacted.Value[string]
	Host  string
}

func ptr[T any](v T) *T { return &v }

// decodeLines parses JSON lines written by slog.JSONHandler.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}
