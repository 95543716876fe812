package service

import "sync"

// AccountLocks serializes mutating operations per account. Ingestion,
// detection-apply, manual linking, and alert evaluation on the same account
// must not interleave (duplicate-hash races, double-applied detections);
// different accounts proceed in parallel.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAccountLocks creates an empty lock registry.
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for an account, creating it on first use.
func (l *AccountLocks) Lock(accountID string) {
	l.get(accountID).Lock()
}

// Unlock releases the lock for an account.
func (l *AccountLocks) Unlock(accountID string) {
	l.get(accountID).Unlock()
}

func (l *AccountLocks) get(accountID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountID] = m
	}
	return m
}
