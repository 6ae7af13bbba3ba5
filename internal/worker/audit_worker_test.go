package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fondo/internal/amqp"
	"fondo/internal/core"
	"fondo/internal/mirror"
	"fondo/internal/storage"
)

func newTestWorker(t *testing.T) (*AuditWorker, *storage.SQLiteRepository, *mirror.MemoryAppender) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	sink := mirror.NewMemoryAppender()
	return NewAuditWorker(repo, sink, 10), repo, sink
}

func seedEntry(t *testing.T, repo *storage.SQLiteRepository) core.Entry {
	t.Helper()
	ctx := context.Background()
	walletID, err := repo.CreateWallet(ctx, core.Wallet{Owner: "anna", Name: "Cash"})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	e := core.Entry{
		Owner:      "anna",
		Amount:     core.Money{Cents: 1500},
		Kind:       core.KindExpense,
		WalletID:   &walletID,
		Tag:        "food",
		OccurredAt: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	id, err := repo.AppendEntry(ctx, e)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	e.ID = id
	return e
}

func TestHandleAuditEvent(t *testing.T) {
	ctx := context.Background()
	w, repo, sink := newTestWorker(t)
	e := seedEntry(t, repo)

	if err := w.HandleAuditEvent(ctx, amqp.NewAuditEvent(amqp.OpAppend, e)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Op != amqp.OpAppend || rec.EntryID != e.ID || rec.AmountCents != 1500 || rec.Kind != "expense" {
		t.Errorf("unexpected record %+v", rec)
	}

	// The entry is marked so the backfill scan skips it.
	pending, err := repo.UnmirroredEntries(ctx, 10)
	if err != nil {
		t.Fatalf("unmirrored: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending entries, got %d", len(pending))
	}
}

func TestHandleAuditEventEditDoesNotMark(t *testing.T) {
	ctx := context.Background()
	w, repo, sink := newTestWorker(t)
	e := seedEntry(t, repo)

	// Edit events are mirrored but leave the append flag alone; the
	// original append still owes its audit row.
	if err := w.HandleAuditEvent(ctx, amqp.NewAuditEvent(amqp.OpEdit, e)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.Records()) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.Records()))
	}

	pending, _ := repo.UnmirroredEntries(ctx, 10)
	if len(pending) != 1 {
		t.Errorf("expected the append still pending, got %d", len(pending))
	}
}

func TestProcessUnmirrored(t *testing.T) {
	ctx := context.Background()
	w, repo, sink := newTestWorker(t)
	seedEntry(t, repo)
	seedEntry(t, repo)

	if err := w.ProcessUnmirrored(ctx); err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if len(sink.Records()) != 2 {
		t.Errorf("expected 2 mirrored records, got %d", len(sink.Records()))
	}

	// Entries drained once stay drained.
	if err := w.ProcessUnmirrored(ctx); err != nil {
		t.Fatalf("second backfill: %v", err)
	}
	if len(sink.Records()) != 2 {
		t.Errorf("backfill re-mirrored entries: %d records", len(sink.Records()))
	}
}

func TestProcessUnmirroredRespectsBatchSize(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	sink := mirror.NewMemoryAppender()
	w := NewAuditWorker(repo, sink, 2)

	for i := 0; i < 3; i++ {
		seedEntry(t, repo)
	}

	if err := w.ProcessUnmirrored(ctx); err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if len(sink.Records()) != 2 {
		t.Errorf("expected batch of 2, got %d", len(sink.Records()))
	}

	// The next scan picks up the remainder.
	if err := w.ProcessUnmirrored(ctx); err != nil {
		t.Fatalf("second backfill: %v", err)
	}
	if len(sink.Records()) != 3 {
		t.Errorf("expected 3 total, got %d", len(sink.Records()))
	}
}
