// Package mirror appends ledger audit records to an external destination.
// The mirror is write-only and best-effort: the ledger never reads from
// it and never depends on it for correctness.
package mirror

import (
	"context"
	"time"
)

// Record is one audit row: an op on an entry, flattened for a
// spreadsheet-like destination.
type Record struct {
	EventID      string
	Op           string
	Owner        string
	EntryID      int64
	Kind         string
	AmountCents  int64
	WalletID     *int64
	GoalID       *int64
	Tag          string
	TransferKind string
	OccurredAt   time.Time
}

// Appender is the outbound port the audit worker writes through.
type Appender interface {
	Append(ctx context.Context, rec Record) error
}
