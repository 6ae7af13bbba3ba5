package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIncome   EntryKind = "income"
	KindExpense  EntryKind = "expense"
	KindTransfer EntryKind = "transfer"
	KindSavings  EntryKind = "savings"
)

const (
	TransferNone            TransferKind = ""
	TransferWalletToWallet  TransferKind = "wallet_to_wallet"
	TransferWalletToSavings TransferKind = "wallet_to_savings"
	TransferSavingsToWallet TransferKind = "savings_to_wallet"
)

type (
	EntryKind    string
	TransferKind string

	Money struct {
		Cents int64
	}

	// Entry is one record of a money movement in the ledger. Entries are
	// append-mostly: once written they change only through an owner-scoped
	// edit or remove.
	//
	// Sign convention: income and expense carry a positive magnitude and
	// the projection applies the sign. Transfer legs and savings entries
	// carry a signed amount. Savings entries with a GoalID are allocation
	// bookkeeping written by the engine; they never move money.
	Entry struct {
		ID           int64
		Owner        string
		Amount       Money
		Kind         EntryKind
		WalletID     *int64
		GoalID       *int64
		Tag          string
		TransferKind TransferKind
		OccurredAt   time.Time
		RecordedAt   time.Time
	}

	// EntryPatch holds the editable fields of an entry. Nil means "leave
	// unchanged". ID and Owner are never editable.
	EntryPatch struct {
		Amount     *Money
		Tag        *string
		OccurredAt *time.Time
	}

	// Wallet holds only metadata. Its balance and savings total are
	// projections over entries, never columns.
	Wallet struct {
		ID    int64
		Owner string
		Name  string
		Icon  string
	}

	SavingsGoal struct {
		ID          int64
		Owner       string
		Name        string
		TargetCents int64
		TargetDate  *time.Time
	}

	// Budget is a spending limit for one category in one calendar month.
	// Unique per (owner, category, month, year). "Spent" is a projection.
	Budget struct {
		ID         int64
		Owner      string
		Category   string
		LimitCents int64
		Month      int
		Year       int
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidKind     = errors.New("invalid entry kind")
	ErrInvalidTransfer = errors.New("invalid transfer kind")
	ErrEmptyOwner      = errors.New("empty owner")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidTarget   = errors.New("invalid target amount")
	ErrInvalidPeriod   = errors.New("invalid month or year")
	ErrMissingDate     = errors.New("missing occurred-at date")
	ErrGoalOnNonSaving = errors.New("goal reference on non-savings entry")
)

func (k EntryKind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer, KindSavings:
		return true
	}
	return false
}

func (t TransferKind) Valid() bool {
	switch t {
	case TransferNone, TransferWalletToWallet, TransferWalletToSavings, TransferSavingsToWallet:
		return true
	}
	return false
}

// Validate checks an entry before it is accepted into the ledger.
// Income and expense must arrive as a positive magnitude; the sign is
// derived from the kind at projection time, never supplied. Transfer and
// savings entries are signed but must be nonzero.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Owner) == "" {
		return ErrEmptyOwner
	}
	if !e.Kind.Valid() {
		return ErrInvalidKind
	}
	if !e.TransferKind.Valid() {
		return ErrInvalidTransfer
	}
	switch e.Kind {
	case KindIncome, KindExpense:
		if e.Amount.Cents <= 0 {
			return ErrInvalidAmount
		}
	case KindTransfer, KindSavings:
		if e.Amount.Cents == 0 {
			return ErrInvalidAmount
		}
	}
	if e.GoalID != nil && e.Kind != KindSavings {
		return ErrGoalOnNonSaving
	}
	if e.OccurredAt.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (w Wallet) Validate() error {
	if strings.TrimSpace(w.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.TargetCents <= 0 {
		return ErrInvalidTarget
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.LimitCents <= 0 {
		return ErrInvalidAmount
	}
	if b.Month < 1 || b.Month > 12 || b.Year < 1 {
		return ErrInvalidPeriod
	}
	return nil
}

// MonthWindow returns the half-open interval [start, end) covering the
// budget's calendar month. Projections bucket OccurredAt against it.
func (b Budget) MonthWindow() (time.Time, time.Time) {
	return MonthWindow(b.Year, b.Month)
}

func MonthWindow(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
