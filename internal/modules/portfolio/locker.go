package portfolio

import "sync"

// Locker serializes cash-affecting operations per portfolio. Concurrent
// operations against different portfolios proceed in parallel; within one
// portfolio the read-modify-write of cash and shares must not interleave.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewLocker creates a new per-portfolio locker
func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the mutex for a portfolio, creating it on first use
func (l *Locker) Lock(portfolioID int64) {
	l.mu.Lock()
	m, ok := l.locks[portfolioID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[portfolioID] = m
	}
	l.mu.Unlock()

	m.Lock()
}

// Unlock releases the mutex for a portfolio
func (l *Locker) Unlock(portfolioID int64) {
	l.mu.Lock()
	m := l.locks[portfolioID]
	l.mu.Unlock()

	if m != nil {
		m.Unlock()
	}
}
