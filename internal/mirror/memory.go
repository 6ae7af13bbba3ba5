package mirror

import (
	"context"
	"sync"
)

// MemoryAppender collects audit records in memory. Used by tests and as
// the fallback when no spreadsheet is configured.
type MemoryAppender struct {
	mu      sync.Mutex
	records []Record
}

var _ Appender = (*MemoryAppender)(nil)

func NewMemoryAppender() *MemoryAppender {
	return &MemoryAppender{}
}

func (a *MemoryAppender) Append(_ context.Context, rec Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

// Records returns a copy of everything appended so far.
func (a *MemoryAppender) Records() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}
