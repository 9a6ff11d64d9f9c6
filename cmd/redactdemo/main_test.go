package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// messages decodes JSON log lines keyed by message.
func messages(t *testing.T, out string) map[string][]map[string]any {
	t.Helper()
	byMsg := make(map[string][]map[string]any)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line: %s", line)
		msg, _ := m["msg"].(string)
		byMsg[msg] = append(byMsg[msg], m)
	}
	return byMsg
}

func TestRun_RedactsPersonalData(t *testing.T) {
	for _, backend := range []string{backendSlog, backendZap} {
		for _, mode := range []string{"destructure", "enrich", "both"} {
			t.Run(backend+"/"+mode, func(t *testing.T) {
				var stdout, stderr bytes.Buffer
				err := run(context.Background(),
					[]string{"-iterations", "1", "-format", "json", "-quiet", "-backend", backend, "-mode", mode},
					&stdout, &stderr)
				require.NoError(t, err)

				byMsg := messages(t, stdout.String())

				company := byMsg["Logging company"]
				require.Len(t, company, 1)
				assert.NotContains(t, mustJSON(t, company[0]), "P@ssw0rd!")
				assert.NotContains(t, mustJSON(t, company[0]), "john.doe@fake.com")

				people := byMsg["Logging person"]
				require.Len(t, people, 2)
				john := people[0]["person"].(map[string]any)
				assert.Equal(t, "John Doe", john["Name"])
				assert.Equal(t, "[REDACTED]", john["SSN"])
				assert.Equal(t, "[REDACTED]", john["Emails"])
				assert.Equal(t, "[REDACTED]", john["Username"])
				assert.Equal(t, "[REDACTED]", john["Password"])

				jane := people[1]["person"].(map[string]any)
				assert.Nil(t, jane["SSN"])
				assert.Nil(t, jane["Username"])

				wrapped := byMsg["With redacted values"]
				require.Len(t, wrapped, 2)
				assert.Equal(t, "[REDACTED]", wrapped[0]["username"])
				assert.Equal(t, "[REDACTED]", wrapped[0]["password"])
				assert.Nil(t, wrapped[1]["password"])

				direct := byMsg["Without redacted values, fields logged directly are not redacted"]
				require.Len(t, direct, 2)
				assert.Equal(t, "123-45-6789", direct[0]["ssn"])
			})
		}
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestRun_CustomPlaceholderFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redaction:\n  placeholder: \"***\"\ndemo:\n  iterations: 1\n"), 0o600))

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", path, "-format", "json", "-quiet"}, &stdout, &bytes.Buffer{}))

	assert.Contains(t, stdout.String(), `"***"`)
	assert.NotContains(t, stdout.String(), "[REDACTED]")
}

func TestRun_WritesLogFile(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, run(context.Background(),
		[]string{"-iterations", "1", "-quiet", "-log-dir", dir},
		&bytes.Buffer{}, &bytes.Buffer{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[REDACTED]")
	assert.NotContains(t, string(data), "P@ssw0rd!")
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout bytes.Buffer
	err := run(ctx, []string{"-iterations", "0", "-interval", "1h", "-format", "json", "-quiet"}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Len(t, messages(t, stdout.String())["Logging company"], 1)
}

func TestRun_InvalidArguments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
		errText string
	}{
		{name: "unknown backend", args: []string{"-backend", "log4j"}, wantErr: ErrInvalidBackend},
		{name: "unknown mode", args: []string{"-mode", "sometimes"}, errText: "redaction.mode"},
		{name: "missing config", args: []string{"-config", "missing.toml"}, errText: "failed to stat config file"},
		{name: "help", args: []string{"-h"}, wantErr: flag.ErrHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, &bytes.Buffer{}, &bytes.Buffer{})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			if tt.errText != "" {
				assert.Contains(t, err.Error(), tt.errText)
			}
		})
	}
}

func TestLoop_Iterations(t *testing.T) {
	calls := 0
	require.NoError(t, loop(context.Background(), time.Millisecond, 3, func() { calls++ }))
	assert.Equal(t, 3, calls)
}
