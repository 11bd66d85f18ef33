package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout is returned when a lock cannot be acquired before the
// caller's context expires.
var ErrLockTimeout = errors.New("timed out waiting for account lock")

// AccountLocks hands out one exclusive lock per account id. A transfer
// holds the locks of both involved accounts for its whole critical
// section, so transfers touching disjoint accounts run in parallel while
// transfers sharing an account are serialized. Waiters blocked on the same
// account are woken in roughly arrival order.
type AccountLocks struct {
	mu   sync.Mutex
	sems map[int64]chan struct{}
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{
		sems: make(map[int64]chan struct{}),
	}
}

func (l *AccountLocks) sem(id int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[id]
	if !ok {
		s = make(chan struct{}, 1)
		l.sems[id] = s
	}
	return s
}

func (l *AccountLocks) acquire(ctx context.Context, id int64) error {
	select {
	case l.sem(id) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrLockTimeout
	}
}

func (l *AccountLocks) release(id int64) {
	<-l.sem(id)
}

// Lock acquires the lock for a single account. The returned function
// releases it.
func (l *AccountLocks) Lock(ctx context.Context, id int64) (func(), error) {
	if err := l.acquire(ctx, id); err != nil {
		return nil, err
	}
	return func() { l.release(id) }, nil
}

// LockPair acquires both account locks in ascending id order. The fixed
// order means two transfers crossing the same pair of accounts in opposite
// directions can never deadlock: both contend for the lower id first.
// Bound the wait by passing a context with a deadline.
func (l *AccountLocks) LockPair(ctx context.Context, a, b int64) (func(), error) {
	if a == b {
		return l.Lock(ctx, a)
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	if err := l.acquire(ctx, first); err != nil {
		return nil, err
	}
	if err := l.acquire(ctx, second); err != nil {
		l.release(first)
		return nil, err
	}
	return func() {
		l.release(second)
		l.release(first)
	}, nil
}
