// Package services wires the ledger store, the allocation engine and the
// audit event stream together behind the operations the API exposes.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fondo/internal/amqp"
	"fondo/internal/core"
	"fondo/internal/ledger"
)

// AuditPublisher is the outbound port for audit events. Publication is
// best-effort: a failed publish never fails the ledger write, the audit
// worker's backfill scan covers the gap.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, ev *amqp.AuditEvent) error
}

// LedgerService exposes the ledger-derived engine to API collaborators:
// entry writes, transfers, projections and allocation edits.
type LedgerService struct {
	store     ledger.Store
	engine    *ledger.Engine
	publisher AuditPublisher
}

func NewLedgerService(store ledger.Store, publisher AuditPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		engine:    ledger.NewEngine(store),
		publisher: publisher,
	}
}

// AppendEntry validates and appends one entry, then publishes its audit
// event.
func (s *LedgerService) AppendEntry(ctx context.Context, e core.Entry) (int64, error) {
	id, err := s.store.AppendEntry(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("append entry: %w", err)
	}
	e.ID = id
	s.publish(ctx, amqp.OpAppend, e)
	return id, nil
}

func (s *LedgerService) GetEntry(ctx context.Context, owner string, id int64) (core.Entry, error) {
	return s.store.GetEntry(ctx, owner, id)
}

func (s *LedgerService) EditEntry(ctx context.Context, owner string, id int64, patch core.EntryPatch) (core.Entry, error) {
	updated, err := s.store.EditEntry(ctx, owner, id, patch)
	if err != nil {
		return core.Entry{}, err
	}
	s.publish(ctx, amqp.OpEdit, updated)
	return updated, nil
}

func (s *LedgerService) RemoveEntry(ctx context.Context, owner string, id int64) error {
	entry, err := s.store.GetEntry(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.RemoveEntry(ctx, owner, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.OpRemove, entry)
	return nil
}

func (s *LedgerService) Entries(ctx context.Context, f ledger.Filter) ([]core.Entry, error) {
	return s.store.Entries(ctx, f)
}

// Transfer moves money between two of the owner's wallets as a leg pair:
// a negative entry on the source and a positive one on the destination.
// The legs share tag and transfer kind so audits can match them up. The
// pair is not atomic; a failure after the first leg is surfaced so the
// caller can correct the ledger.
func (s *LedgerService) Transfer(ctx context.Context, owner string, fromWallet, toWallet int64, amount core.Money, kind core.TransferKind, tag string, occurredAt time.Time) (int64, int64, error) {
	if amount.Cents <= 0 {
		return 0, 0, core.ErrInvalidAmount
	}
	if kind == core.TransferNone {
		kind = core.TransferWalletToWallet
	}

	out := core.Entry{
		Owner:        owner,
		Amount:       amount.Neg(),
		Kind:         core.KindTransfer,
		WalletID:     &fromWallet,
		Tag:          tag,
		TransferKind: kind,
		OccurredAt:   occurredAt,
	}
	in := core.Entry{
		Owner:        owner,
		Amount:       amount,
		Kind:         core.KindTransfer,
		WalletID:     &toWallet,
		Tag:          tag,
		TransferKind: kind,
		OccurredAt:   occurredAt,
	}

	outID, err := s.store.AppendEntry(ctx, out)
	if err != nil {
		return 0, 0, fmt.Errorf("transfer source leg: %w", err)
	}
	out.ID = outID
	s.publish(ctx, amqp.OpAppend, out)

	inID, err := s.store.AppendEntry(ctx, in)
	if err != nil {
		return outID, 0, fmt.Errorf("transfer destination leg (source leg %d written): %w", outID, err)
	}
	in.ID = inID
	s.publish(ctx, amqp.OpAppend, in)

	return outID, inID, nil
}

// WalletBalance recomputes the wallet's balance from its entries.
func (s *LedgerService) WalletBalance(ctx context.Context, owner string, walletID int64) (core.Money, error) {
	if _, err := s.store.GetWallet(ctx, owner, walletID); err != nil {
		return core.Money{}, err
	}
	entries, err := s.store.Entries(ctx, ledger.Filter{Owner: owner, WalletID: &walletID})
	if err != nil {
		return core.Money{}, fmt.Errorf("load wallet entries: %w", err)
	}
	return ledger.WalletBalance(entries, walletID), nil
}

// WalletSavingsTotal recomputes the wallet's savings bucket.
func (s *LedgerService) WalletSavingsTotal(ctx context.Context, owner string, walletID int64) (core.Money, error) {
	if _, err := s.store.GetWallet(ctx, owner, walletID); err != nil {
		return core.Money{}, err
	}
	entries, err := s.store.Entries(ctx, ledger.Filter{Owner: owner, WalletID: &walletID, Kind: core.KindSavings})
	if err != nil {
		return core.Money{}, fmt.Errorf("load savings entries: %w", err)
	}
	return ledger.WalletSavingsTotal(entries, walletID), nil
}

// BudgetSpent recomputes spending for one category and calendar month.
func (s *LedgerService) BudgetSpent(ctx context.Context, owner, category string, year, month int) (core.Money, error) {
	from, to := core.MonthWindow(year, month)
	entries, err := s.store.Entries(ctx, ledger.Filter{
		Owner: owner,
		Kind:  core.KindExpense,
		Tag:   category,
		From:  from,
		To:    to,
	})
	if err != nil {
		return core.Money{}, fmt.Errorf("load budget entries: %w", err)
	}
	return ledger.BudgetSpent(entries, category, year, month), nil
}

// GoalAllocated recomputes the goal's allocated amount across wallets.
func (s *LedgerService) GoalAllocated(ctx context.Context, owner string, goalID int64) (core.Money, error) {
	if _, err := s.store.GetGoal(ctx, owner, goalID); err != nil {
		return core.Money{}, err
	}
	entries, err := s.store.Entries(ctx, ledger.Filter{Owner: owner, GoalID: &goalID})
	if err != nil {
		return core.Money{}, fmt.Errorf("load goal entries: %w", err)
	}
	return ledger.GoalAllocated(entries, goalID), nil
}

// MaxAllocation reports how much more of the wallet's savings the goal
// may claim right now.
func (s *LedgerService) MaxAllocation(ctx context.Context, owner string, goalID, walletID int64) (core.Money, error) {
	return s.engine.MaxAllocation(ctx, owner, goalID, walletID)
}

// ApplyAllocation runs one reset-then-reapply allocation session and
// publishes the allocation audit events for the synthetic entries.
func (s *LedgerService) ApplyAllocation(ctx context.Context, owner string, goalID int64, desired map[int64]int64) (*ledger.AllocationResult, error) {
	result, err := s.engine.ApplyAllocation(ctx, owner, goalID, desired)
	if err != nil {
		return nil, err
	}
	s.publishAllocation(ctx, owner, goalID, result)
	return result, nil
}

func (s *LedgerService) CreateWallet(ctx context.Context, w core.Wallet) (int64, error) {
	return s.store.CreateWallet(ctx, w)
}

func (s *LedgerService) GetWallet(ctx context.Context, owner string, id int64) (core.Wallet, error) {
	return s.store.GetWallet(ctx, owner, id)
}

func (s *LedgerService) ListWallets(ctx context.Context, owner string) ([]core.Wallet, error) {
	return s.store.ListWallets(ctx, owner)
}

func (s *LedgerService) DeleteWallet(ctx context.Context, owner string, id int64) error {
	return s.store.DeleteWallet(ctx, owner, id)
}

func (s *LedgerService) CreateGoal(ctx context.Context, g core.SavingsGoal) (int64, error) {
	return s.store.CreateGoal(ctx, g)
}

func (s *LedgerService) GetGoal(ctx context.Context, owner string, id int64) (core.SavingsGoal, error) {
	return s.store.GetGoal(ctx, owner, id)
}

func (s *LedgerService) ListGoals(ctx context.Context, owner string) ([]core.SavingsGoal, error) {
	return s.store.ListGoals(ctx, owner)
}

func (s *LedgerService) DeleteGoal(ctx context.Context, owner string, id int64) error {
	return s.store.DeleteGoal(ctx, owner, id)
}

func (s *LedgerService) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	return s.store.CreateBudget(ctx, b)
}

func (s *LedgerService) GetBudget(ctx context.Context, owner string, id int64) (core.Budget, error) {
	return s.store.GetBudget(ctx, owner, id)
}

func (s *LedgerService) ListBudgets(ctx context.Context, owner string, year, month int) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, owner, year, month)
}

func (s *LedgerService) DeleteBudget(ctx context.Context, owner string, id int64) error {
	return s.store.DeleteBudget(ctx, owner, id)
}

func (s *LedgerService) publish(ctx context.Context, op string, e core.Entry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAuditEvent(ctx, amqp.NewAuditEvent(op, e)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish audit event",
			"op", op,
			"entry_id", e.ID,
			"error", err)
		// Don't fail the request - the write is committed locally
	}
}

func (s *LedgerService) publishAllocation(ctx context.Context, owner string, goalID int64, result *ledger.AllocationResult) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewAuditEvent(amqp.OpAllocation, core.Entry{
		Owner:      owner,
		Amount:     result.Total,
		Kind:       core.KindSavings,
		GoalID:     &goalID,
		Tag:        ledger.AllocationTag,
		OccurredAt: time.Now().UTC(),
	})
	if err := s.publisher.PublishAuditEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish allocation audit event",
			"goal_id", goalID,
			"error", err)
	}
}

// Close closes the underlying store. The AMQP client is owned by the
// caller that created it.
func (s *LedgerService) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	return nil
}
