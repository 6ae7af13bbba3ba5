package ledger

import (
	"fondo/internal/core"
)

// Projections are pure folds over an entry set. They take the entries as
// a value and return a total; running one twice over the same set yields
// the same result. Nothing here mutates state or keeps counters.

// balanceContribution returns an entry's signed effect on its wallet's
// liquid balance.
//
// Income adds its magnitude, expense subtracts it. Transfer legs and
// savings deposits/withdrawals are stored signed and contribute as-is:
// money tagged as savings stays inside the wallet, so a savings deposit
// still counts toward the balance. Allocation bookkeeping (savings
// entries with a goal reference) claims money for a goal without moving
// it and contributes nothing.
func balanceContribution(e core.Entry) int64 {
	switch e.Kind {
	case core.KindIncome:
		return e.Amount.Cents
	case core.KindExpense:
		return -e.Amount.Cents
	case core.KindTransfer:
		return e.Amount.Cents
	case core.KindSavings:
		if e.GoalID != nil {
			return 0
		}
		return e.Amount.Cents
	}
	return 0
}

// WalletBalance folds the entries referencing walletID into the wallet's
// current liquid balance.
func WalletBalance(entries []core.Entry, walletID int64) core.Money {
	var total int64
	for _, e := range entries {
		if e.WalletID == nil || *e.WalletID != walletID {
			continue
		}
		total += balanceContribution(e)
	}
	return core.Money{Cents: total}
}

// WalletSavingsTotal folds the wallet's savings deposits and withdrawals,
// net of sign. Allocation entries are excluded: claiming savings for a
// goal does not create or destroy them.
func WalletSavingsTotal(entries []core.Entry, walletID int64) core.Money {
	var total int64
	for _, e := range entries {
		if e.Kind != core.KindSavings || e.GoalID != nil {
			continue
		}
		if e.WalletID == nil || *e.WalletID != walletID {
			continue
		}
		total += e.Amount.Cents
	}
	return core.Money{Cents: total}
}

// BudgetSpent folds expense entries tagged with the category whose
// OccurredAt falls inside the budget's calendar month.
func BudgetSpent(entries []core.Entry, category string, year, month int) core.Money {
	start, end := core.MonthWindow(year, month)
	var total int64
	for _, e := range entries {
		if e.Kind != core.KindExpense || e.Tag != category {
			continue
		}
		if e.OccurredAt.Before(start) || !e.OccurredAt.Before(end) {
			continue
		}
		total += e.Amount.Cents
	}
	return core.Money{Cents: total}
}

// GoalAllocated folds the goal's allocation and deallocation entries,
// independent of wallet, into its current allocated amount.
func GoalAllocated(entries []core.Entry, goalID int64) core.Money {
	var total int64
	for _, e := range entries {
		if e.Kind != core.KindSavings || e.GoalID == nil || *e.GoalID != goalID {
			continue
		}
		total += e.Amount.Cents
	}
	return core.Money{Cents: total}
}

// AllocatedFromWallet folds the portion of a goal's allocation drawn from
// one specific wallet.
func AllocatedFromWallet(entries []core.Entry, goalID, walletID int64) core.Money {
	var total int64
	for _, e := range entries {
		if e.Kind != core.KindSavings || e.GoalID == nil || *e.GoalID != goalID {
			continue
		}
		if e.WalletID == nil || *e.WalletID != walletID {
			continue
		}
		total += e.Amount.Cents
	}
	return core.Money{Cents: total}
}
