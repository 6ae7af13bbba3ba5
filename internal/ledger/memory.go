package ledger

import (
	"context"
	"sync"
	"time"

	"fondo/internal/core"
)

// MemoryStore is the in-process Store used by tests and the "memory"
// backend. IDs are monotonically assigned per record type, matching the
// SQLite store's autoincrement behavior.
type MemoryStore struct {
	mu      sync.Mutex
	entries []core.Entry
	wallets []core.Wallet
	goals   []core.SavingsGoal
	budgets []core.Budget

	nextEntryID  int64
	nextWalletID int64
	nextGoalID   int64
	nextBudgetID int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextEntryID:  1,
		nextWalletID: 1,
		nextGoalID:   1,
		nextBudgetID: 1,
	}
}

func (s *MemoryStore) AppendEntry(_ context.Context, e core.Entry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.WalletID != nil {
		w, ok := s.walletByID(*e.WalletID)
		if !ok {
			return 0, ErrNotFound
		}
		if w.Owner != e.Owner {
			return 0, ErrCrossOwnerRef
		}
	}
	if e.GoalID != nil {
		g, ok := s.goalByID(*e.GoalID)
		if !ok {
			return 0, ErrNotFound
		}
		if g.Owner != e.Owner {
			return 0, ErrCrossOwnerRef
		}
	}

	e.ID = s.nextEntryID
	s.nextEntryID++
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	s.entries = append(s.entries, e)
	return e.ID, nil
}

func (s *MemoryStore) GetEntry(_ context.Context, owner string, id int64) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id && e.Owner == owner {
			return e, nil
		}
	}
	return core.Entry{}, ErrNotFound
}

func (s *MemoryStore) EditEntry(_ context.Context, owner string, id int64, patch core.EntryPatch) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID != id || e.Owner != owner {
			continue
		}
		updated := e
		if patch.Amount != nil {
			updated.Amount = *patch.Amount
		}
		if patch.Tag != nil {
			updated.Tag = *patch.Tag
		}
		if patch.OccurredAt != nil {
			updated.OccurredAt = *patch.OccurredAt
		}
		if err := updated.Validate(); err != nil {
			return core.Entry{}, err
		}
		s.entries[i] = updated
		return updated, nil
	}
	return core.Entry{}, ErrNotFound
}

func (s *MemoryStore) RemoveEntry(_ context.Context, owner string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id && e.Owner == owner {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Entries(_ context.Context, f Filter) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Entry
	for _, e := range s.entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateWallet(_ context.Context, w core.Wallet) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = s.nextWalletID
	s.nextWalletID++
	s.wallets = append(s.wallets, w)
	return w.ID, nil
}

func (s *MemoryStore) GetWallet(_ context.Context, owner string, id int64) (core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.walletByID(id); ok && w.Owner == owner {
		return w, nil
	}
	return core.Wallet{}, ErrNotFound
}

func (s *MemoryStore) ListWallets(_ context.Context, owner string) ([]core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Wallet
	for _, w := range s.wallets {
		if w.Owner == owner {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteWallet(_ context.Context, owner string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.wallets {
		if w.ID != id || w.Owner != owner {
			continue
		}
		s.wallets = append(s.wallets[:i], s.wallets[i+1:]...)
		kept := s.entries[:0]
		for _, e := range s.entries {
			if e.WalletID != nil && *e.WalletID == id {
				continue
			}
			kept = append(kept, e)
		}
		s.entries = kept
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) CreateGoal(_ context.Context, g core.SavingsGoal) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.nextGoalID
	s.nextGoalID++
	s.goals = append(s.goals, g)
	return g.ID, nil
}

func (s *MemoryStore) GetGoal(_ context.Context, owner string, id int64) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.goalByID(id); ok && g.Owner == owner {
		return g, nil
	}
	return core.SavingsGoal{}, ErrNotFound
}

func (s *MemoryStore) ListGoals(_ context.Context, owner string) ([]core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.SavingsGoal
	for _, g := range s.goals {
		if g.Owner == owner {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteGoal(_ context.Context, owner string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.goals {
		if g.ID != id || g.Owner != owner {
			continue
		}
		s.goals = append(s.goals[:i], s.goals[i+1:]...)
		kept := s.entries[:0]
		for _, e := range s.entries {
			if e.GoalID != nil && *e.GoalID == id {
				continue
			}
			kept = append(kept, e)
		}
		s.entries = kept
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) CreateBudget(_ context.Context, b core.Budget) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.budgets {
		if existing.Owner == b.Owner && existing.Category == b.Category &&
			existing.Month == b.Month && existing.Year == b.Year {
			return 0, ErrDuplicateBudget
		}
	}
	b.ID = s.nextBudgetID
	s.nextBudgetID++
	s.budgets = append(s.budgets, b)
	return b.ID, nil
}

func (s *MemoryStore) GetBudget(_ context.Context, owner string, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.ID == id && b.Owner == owner {
			return b, nil
		}
	}
	return core.Budget{}, ErrNotFound
}

func (s *MemoryStore) ListBudgets(_ context.Context, owner string, year, month int) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.Owner != owner {
			continue
		}
		if year != 0 && b.Year != year {
			continue
		}
		if month != 0 && b.Month != month {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *MemoryStore) DeleteBudget(_ context.Context, owner string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.budgets {
		if b.ID == id && b.Owner == owner {
			s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) walletByID(id int64) (core.Wallet, bool) {
	for _, w := range s.wallets {
		if w.ID == id {
			return w, true
		}
	}
	return core.Wallet{}, false
}

func (s *MemoryStore) goalByID(id int64) (core.SavingsGoal, bool) {
	for _, g := range s.goals {
		if g.ID == id {
			return g, true
		}
	}
	return core.SavingsGoal{}, false
}
