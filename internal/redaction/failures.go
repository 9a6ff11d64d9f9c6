package redaction

import (
	"sync"
	"time"
)

// Failure is one value the pipeline could not convert.
type Failure struct {
	Key       string    // Property the value belonged to
	Err       error     // Cause
	Timestamp time.Time // When it was recorded
}

// FailureCollector receives conversion failures. It matches
// destructure.FailureRecorder.
type FailureCollector interface {
	RecordFailure(key string, err error)
}

// MemoryCollector keeps the most recent failures in memory. It is safe for
// concurrent use.
type MemoryCollector struct {
	mu       sync.RWMutex
	failures []Failure
	limit    int // 0 = unlimited
	now      func() time.Time
}

// NewMemoryCollector creates a collector that keeps at most limit failures
// (0 = unlimited), dropping the oldest first.
func NewMemoryCollector(limit int) *MemoryCollector {
	return &MemoryCollector{
		limit: limit,
		now:   time.Now,
	}
}

// RecordFailure implements FailureCollector.
func (c *MemoryCollector) RecordFailure(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures = append(c.failures, Failure{Key: key, Err: err, Timestamp: c.now()})
	if c.limit > 0 && len(c.failures) > c.limit {
		c.failures = c.failures[len(c.failures)-c.limit:]
	}
}

// Failures returns a copy of the recorded failures, oldest first.
func (c *MemoryCollector) Failures() []Failure {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Failure, len(c.failures))
	copy(out, c.failures)
	return out
}

// Len returns the number of recorded failures.
func (c *MemoryCollector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.failures)
}

// Reset drops all recorded failures.
func (c *MemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = nil
}
