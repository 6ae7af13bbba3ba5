package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"fondo/internal/core"
)

// Phase tracks where an allocation edit session is in the
// reset-then-reapply protocol.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseResetting  Phase = "resetting"
	PhaseReapplying Phase = "reapplying"
	PhaseCommitted  Phase = "committed"
)

// AllocationTag labels the synthetic savings entries the engine writes,
// so they are recognizable in audits.
const AllocationTag = "allocation"

// ReconciliationError reports a reset-then-reapply session that failed
// partway. Actual carries the goal's real allocated amount after the
// failure so callers can show the true (possibly zeroed) state instead of
// the stale desired one. Replaying the same request converges to the same
// end state.
type ReconciliationError struct {
	GoalID int64
	Phase  Phase
	Actual core.Money
	Err    error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("allocation reconciliation failed for goal %d during %s (actual allocation %s): %v",
		e.GoalID, e.Phase, e.Actual, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// AllocationResult reports what an allocation save actually did. Clamped
// is the required observable for requests reduced to the capacity limit:
// the engine accepts and clamps rather than rejecting, and the caller
// must be able to see the difference.
type AllocationResult struct {
	GoalID    int64
	Requested map[int64]int64
	Applied   map[int64]int64
	Total     core.Money
	Clamped   bool
}

// Engine applies allocation changes between savings goals and wallets as
// ledger mutations. It serializes sessions per owner: the advisory lock
// is held from the first projection read to the last append, closing the
// read-then-write race that would otherwise let two goals claim the same
// savings.
type Engine struct {
	store Store
	locks *ownerLocks
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{
		store: store,
		locks: newOwnerLocks(),
		now:   time.Now,
	}
}

// snapshot is one consistent read of an owner's allocation-relevant
// state. All capacity math runs against it.
type snapshot struct {
	entries []core.Entry
	wallets []core.Wallet
	goals   []core.SavingsGoal
}

func (e *Engine) loadSnapshot(ctx context.Context, owner string) (*snapshot, error) {
	entries, err := e.store.Entries(ctx, Filter{Owner: owner})
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	wallets, err := e.store.ListWallets(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load wallets: %w", err)
	}
	goals, err := e.store.ListGoals(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	return &snapshot{entries: entries, wallets: wallets, goals: goals}, nil
}

// maxAllocation computes the ceiling for one additional allocation of the
// goal from the wallet, against the snapshot.
//
// A wallet's savings may be claimed once, and a goal never funds past its
// target. Only other goals' claims shrink the ceiling, so a goal can move
// its own existing allocation freely between wallets. The per-wallet term
// also subtracts other goals' claims drawn from this specific wallet;
// without it two goals could both drain a small wallet while the global
// unallocated total still had room.
func (s *snapshot) maxAllocation(goal core.SavingsGoal, walletID int64) int64 {
	var allocatedToOthers, claimedFromWallet int64
	for _, g := range s.goals {
		if g.ID == goal.ID {
			continue
		}
		allocatedToOthers += GoalAllocated(s.entries, g.ID).Cents
		claimedFromWallet += AllocatedFromWallet(s.entries, g.ID, walletID).Cents
	}

	var totalSavings int64
	for _, w := range s.wallets {
		totalSavings += WalletSavingsTotal(s.entries, w.ID).Cents
	}

	totalUnallocated := max64(0, totalSavings-allocatedToOthers)
	walletSavings := WalletSavingsTotal(s.entries, walletID).Cents
	availableFromWallet := min64(max64(0, walletSavings-claimedFromWallet), totalUnallocated)
	remainingCapacity := max64(0, goal.TargetCents-GoalAllocated(s.entries, goal.ID).Cents)

	return min64(availableFromWallet, remainingCapacity)
}

// MaxAllocation is the pure read-only capacity check exposed to callers.
// It takes no lock, so the figure can be stale by the time a plan built
// on it is applied; ApplyAllocation re-clamps under the owner lock.
func (e *Engine) MaxAllocation(ctx context.Context, owner string, goalID, walletID int64) (core.Money, error) {
	goal, err := e.store.GetGoal(ctx, owner, goalID)
	if err != nil {
		return core.Money{}, err
	}
	if _, err := e.store.GetWallet(ctx, owner, walletID); err != nil {
		return core.Money{}, err
	}
	snap, err := e.loadSnapshot(ctx, owner)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: snap.maxAllocation(goal, walletID)}, nil
}

// ApplyAllocation reconciles the goal's allocation to the desired
// per-wallet totals using the reset-then-reapply protocol:
//
//  1. read the goal's current allocation,
//  2. append one deallocation entry per previously-funded wallet,
//     zeroing the goal,
//  3. append one allocation entry per desired (goal, wallet) pair,
//     clamped to the capacity rule.
//
// Deallocations are durably written before any allocation is attempted.
// A failure partway leaves the goal in a valid but not-yet-desired state
// (at worst fully zeroed), never double-counted; the caller retries with
// the same desired totals.
func (e *Engine) ApplyAllocation(ctx context.Context, owner string, goalID int64, desired map[int64]int64) (*AllocationResult, error) {
	for walletID, cents := range desired {
		if cents < 0 {
			return nil, fmt.Errorf("%w: negative allocation for wallet %d", core.ErrInvalidAmount, walletID)
		}
	}

	unlock := e.locks.lock(owner)
	defer unlock()

	goal, err := e.store.GetGoal(ctx, owner, goalID)
	if err != nil {
		return nil, err
	}
	for walletID := range desired {
		if _, err := e.store.GetWallet(ctx, owner, walletID); err != nil {
			return nil, err
		}
	}

	snap, err := e.loadSnapshot(ctx, owner)
	if err != nil {
		return nil, err
	}

	// Reset: zero out the goal, one deallocation per funded wallet so
	// the per-wallet folds land exactly on zero.
	phase := PhaseResetting
	for _, w := range snap.wallets {
		funded := AllocatedFromWallet(snap.entries, goalID, w.ID).Cents
		if funded == 0 {
			continue
		}
		entry := e.syntheticEntry(owner, goalID, w.ID, -funded)
		id, err := e.store.AppendEntry(ctx, entry)
		if err != nil {
			return nil, e.reconciliationFailure(ctx, owner, goalID, phase, snap, err)
		}
		entry.ID = id
		snap.entries = append(snap.entries, entry)
	}

	// Reapply: fill each desired wallet up to the capacity rule,
	// recomputed after every append so the filled wallets shrink the
	// remaining room.
	phase = PhaseReapplying
	walletIDs := make([]int64, 0, len(desired))
	for walletID := range desired {
		walletIDs = append(walletIDs, walletID)
	}
	sort.Slice(walletIDs, func(i, j int) bool { return walletIDs[i] < walletIDs[j] })

	result := &AllocationResult{
		GoalID:    goalID,
		Requested: desired,
		Applied:   make(map[int64]int64, len(desired)),
	}
	for _, walletID := range walletIDs {
		want := desired[walletID]
		applied := min64(want, snap.maxAllocation(goal, walletID))
		if applied < want {
			result.Clamped = true
		}
		result.Applied[walletID] = applied
		if applied == 0 {
			continue
		}
		entry := e.syntheticEntry(owner, goalID, walletID, applied)
		id, err := e.store.AppendEntry(ctx, entry)
		if err != nil {
			return nil, e.reconciliationFailure(ctx, owner, goalID, phase, snap, err)
		}
		entry.ID = id
		snap.entries = append(snap.entries, entry)
	}

	result.Total = GoalAllocated(snap.entries, goalID)
	if result.Clamped {
		slog.InfoContext(ctx, "Allocation request clamped to capacity",
			"owner", owner,
			"goal_id", goalID,
			"applied_cents", result.Total.Cents)
	}
	return result, nil
}

func (e *Engine) syntheticEntry(owner string, goalID, walletID, cents int64) core.Entry {
	now := e.now().UTC()
	return core.Entry{
		Owner:      owner,
		Amount:     core.Money{Cents: cents},
		Kind:       core.KindSavings,
		WalletID:   &walletID,
		GoalID:     &goalID,
		Tag:        AllocationTag,
		OccurredAt: now,
		RecordedAt: now,
	}
}

// reconciliationFailure re-reads the goal's actual allocation so the
// error reports the true post-failure state. When the re-read itself
// fails the local snapshot, which reflects every append that succeeded,
// is the best available answer.
func (e *Engine) reconciliationFailure(ctx context.Context, owner string, goalID int64, phase Phase, snap *snapshot, cause error) error {
	actual := GoalAllocated(snap.entries, goalID)
	if entries, err := e.store.Entries(ctx, Filter{Owner: owner, GoalID: &goalID}); err == nil {
		actual = GoalAllocated(entries, goalID)
	}
	slog.ErrorContext(ctx, "Allocation session failed",
		"owner", owner,
		"goal_id", goalID,
		"phase", string(phase),
		"actual_cents", actual.Cents,
		"error", cause)
	return &ReconciliationError{GoalID: goalID, Phase: phase, Actual: actual, Err: cause}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
