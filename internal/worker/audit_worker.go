package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fondo/internal/amqp"
	"fondo/internal/mirror"
	"fondo/internal/storage"
)

// AuditWorker feeds committed ledger writes into the audit mirror. The
// primary path is the AMQP event stream; a periodic scan of unmirrored
// entries backstops events lost between publish and consume.
type AuditWorker struct {
	storage   *storage.SQLiteRepository
	mirror    mirror.Appender
	batchSize int
}

func NewAuditWorker(storage *storage.SQLiteRepository, appender mirror.Appender, batchSize int) *AuditWorker {
	return &AuditWorker{
		storage:   storage,
		mirror:    appender,
		batchSize: batchSize,
	}
}

// HandleAuditEvent mirrors one event from the queue. Append events also
// flip the entry's mirrored flag so the backfill scan skips it.
func (w *AuditWorker) HandleAuditEvent(ctx context.Context, ev *amqp.AuditEvent) error {
	rec := mirror.Record{
		EventID:      ev.EventID,
		Op:           ev.Op,
		Owner:        ev.Owner,
		EntryID:      ev.EntryID,
		Kind:         ev.Kind,
		AmountCents:  ev.AmountCents,
		WalletID:     ev.WalletID,
		GoalID:       ev.GoalID,
		Tag:          ev.Tag,
		TransferKind: ev.TransferKind,
		OccurredAt:   ev.OccurredAt,
	}

	if err := w.mirror.Append(ctx, rec); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}

	if ev.Op == amqp.OpAppend && ev.EntryID != 0 {
		if err := w.storage.MarkMirrored(ctx, ev.EntryID); err != nil {
			return fmt.Errorf("mark entry mirrored: %w", err)
		}
	}

	return nil
}

// ProcessUnmirrored mirrors entries whose audit event never arrived.
// This is a backup mechanism in case AMQP messages are lost.
func (w *AuditWorker) ProcessUnmirrored(ctx context.Context) error {
	entries, err := w.storage.UnmirroredEntries(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get unmirrored entries: %w", err)
	}

	if len(entries) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing unmirrored entries", "count", len(entries))

	for _, e := range entries {
		ev := amqp.NewAuditEvent(amqp.OpAppend, e)
		if err := w.HandleAuditEvent(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror entry", "id", e.ID, "error", err)
			continue
		}
	}

	return nil
}
