package ledger

import "sync"

// ownerLocks hands out one advisory mutex per owner. An allocation
// session holds its owner's lock across the read-then-write gap, so two
// sessions for the same owner serialize instead of racing to claim the
// same savings. Locks are never reclaimed; the map grows with the number
// of distinct owners seen, which stays small for this service.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the owner's mutex and returns the matching unlock.
func (l *ownerLocks) lock(owner string) func() {
	l.mu.Lock()
	m, ok := l.locks[owner]
	if !ok {
		m = &sync.Mutex{}
		l.locks[owner] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
