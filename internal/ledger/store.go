// Package ledger holds the ledger-derived state engine: the entry store
// contract, the pure projections over entries, and the savings allocation
// engine. Balances, budget spending and goal progress are never stored;
// they are recomputed from the entry history on every read.
package ledger

import (
	"context"
	"errors"
	"time"

	"fondo/internal/core"
)

var (
	// ErrNotFound covers both nonexistent and foreign-owned records:
	// an owner can never learn that another owner's id exists.
	ErrNotFound = errors.New("not found")

	// ErrCrossOwnerRef rejects entries whose wallet or goal reference
	// belongs to a different owner.
	ErrCrossOwnerRef = errors.New("reference belongs to another owner")

	// ErrDuplicateBudget rejects a second budget for the same
	// (owner, category, month, year).
	ErrDuplicateBudget = errors.New("budget already exists for this period")
)

// Filter narrows an entry query. Zero values mean "any". From/To form a
// half-open interval [From, To) over OccurredAt.
type Filter struct {
	Owner    string
	Kind     core.EntryKind
	WalletID *int64
	GoalID   *int64
	Tag      string
	From     time.Time
	To       time.Time
}

// Match reports whether an entry satisfies the filter. The SQLite store
// pushes the same conditions into SQL; this is the reference semantics
// and what the memory store runs.
func (f Filter) Match(e core.Entry) bool {
	if f.Owner != "" && e.Owner != f.Owner {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.WalletID != nil && (e.WalletID == nil || *e.WalletID != *f.WalletID) {
		return false
	}
	if f.GoalID != nil && (e.GoalID == nil || *e.GoalID != *f.GoalID) {
		return false
	}
	if f.Tag != "" && e.Tag != f.Tag {
		return false
	}
	if !f.From.IsZero() && e.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.OccurredAt.Before(f.To) {
		return false
	}
	return true
}

// Store is the single source of truth for ledger state. Appends validate
// the entry and its references; edits and removes are owner-scoped and
// last-writer-wins. No store method triggers recomputation: aggregates
// are lazy folds done by callers.
type Store interface {
	AppendEntry(ctx context.Context, e core.Entry) (int64, error)
	GetEntry(ctx context.Context, owner string, id int64) (core.Entry, error)
	EditEntry(ctx context.Context, owner string, id int64, patch core.EntryPatch) (core.Entry, error)
	RemoveEntry(ctx context.Context, owner string, id int64) error
	Entries(ctx context.Context, f Filter) ([]core.Entry, error)

	CreateWallet(ctx context.Context, w core.Wallet) (int64, error)
	GetWallet(ctx context.Context, owner string, id int64) (core.Wallet, error)
	ListWallets(ctx context.Context, owner string) ([]core.Wallet, error)
	// DeleteWallet cascades: entries referencing the wallet are deleted
	// with it, so projections never see dangling references.
	DeleteWallet(ctx context.Context, owner string, id int64) error

	CreateGoal(ctx context.Context, g core.SavingsGoal) (int64, error)
	GetGoal(ctx context.Context, owner string, id int64) (core.SavingsGoal, error)
	ListGoals(ctx context.Context, owner string) ([]core.SavingsGoal, error)
	// DeleteGoal cascades to the goal's allocation entries; savings
	// deposits stay because they are the wallet's money, not the goal's.
	DeleteGoal(ctx context.Context, owner string, id int64) error

	CreateBudget(ctx context.Context, b core.Budget) (int64, error)
	GetBudget(ctx context.Context, owner string, id int64) (core.Budget, error)
	ListBudgets(ctx context.Context, owner string, year, month int) ([]core.Budget, error)
	DeleteBudget(ctx context.Context, owner string, id int64) error

	Close() error
}
