package redaction

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
)

const reportTimeLayout = "2006-01-02 15:04:05"

// Reporter summarises collected failures, typically on shutdown.
type Reporter struct {
	collector *MemoryCollector
	writer    io.Writer
	logger    *slog.Logger
}

// NewReporter creates a Reporter. Either writer or logger may be nil.
func NewReporter(collector *MemoryCollector, writer io.Writer, logger *slog.Logger) *Reporter {
	return &Reporter{
		collector: collector,
		writer:    writer,
		logger:    logger,
	}
}

// Report logs a one-line summary and writes a per-property breakdown. It does
// nothing when no failure was recorded.
func (r *Reporter) Report() error {
	if r.collector == nil {
		return nil
	}

	failures := r.collector.Failures()
	if len(failures) == 0 {
		return nil
	}

	if r.logger != nil {
		r.logger.Warn("Destructuring failures summary",
			"total_failures", len(failures),
			"first_failure_key", failures[0].Key,
			"last_failure_key", failures[len(failures)-1].Key,
		)
	}

	if r.writer == nil {
		return nil
	}
	if _, err := io.WriteString(r.writer, formatReport(failures)); err != nil {
		return fmt.Errorf("failed to write failure report: %w", err)
	}
	return nil
}

func formatReport(failures []Failure) string {
	byKey := make(map[string][]Failure)
	for _, f := range failures {
		byKey[f.Key] = append(byKey[f.Key], f)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("\nDESTRUCTURING FAILURES DETECTED:\n")
	fmt.Fprintf(&sb, "  Total failures: %d\n", len(failures))
	fmt.Fprintf(&sb, "  Affected properties: %d\n\n", len(byKey))
	sb.WriteString("Details:\n")

	for _, k := range keys {
		group := byKey[k]
		first := group[0]
		fmt.Fprintf(&sb, "\n  Property: %s\n", k)
		fmt.Fprintf(&sb, "  Count: %d\n", len(group))
		fmt.Fprintf(&sb, "  Error: %v\n", first.Err)
		fmt.Fprintf(&sb, "  First occurrence: %s\n", first.Timestamp.Format(reportTimeLayout))
		if len(group) > 1 {
			fmt.Fprintf(&sb, "  Last occurrence: %s\n", group[len(group)-1].Timestamp.Format(reportTimeLayout))
		}
	}

	sb.WriteString("\nNote: the affected values were logged as a failure placeholder.\n")
	sb.WriteString("      Check their LogValue methods for panics.\n\n")
	return sb.String()
}
