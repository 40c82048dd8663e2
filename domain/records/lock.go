package records

import (
	"context"
	"fmt"
	"sync"

	"github.com/uptrace/bun"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/database"
)

// Locker serializes updates to one dataset. The returned release must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, dataset string) (release func() error, err error)
}

// AdvisoryLocker holds pg_advisory_xact_lock(hashtext(dataset)) inside a
// transaction for the length of the update. Ending the transaction releases
// the lock, also when the holder's connection dies.
type AdvisoryLocker struct {
	db *bun.DB
}

// NewAdvisoryLocker creates a Locker backed by Postgres advisory locks.
func NewAdvisoryLocker(db *bun.DB) *AdvisoryLocker {
	return &AdvisoryLocker{db: db}
}

func (l *AdvisoryLocker) Lock(ctx context.Context, dataset string) (func() error, error) {
	tx, err := database.BeginSafeTx(ctx, l.db)
	if err != nil {
		return nil, fmt.Errorf("begin lock transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", dataset); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("lock dataset %s: %w", dataset, err)
	}
	return tx.Commit, nil
}

// MutexLocker is the in-process Locker used without a database.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewMutexLocker creates an in-process Locker.
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: map[string]chan struct{}{}}
}

func (l *MutexLocker) Lock(ctx context.Context, dataset string) (func() error, error) {
	l.mu.Lock()
	ch, ok := l.locks[dataset]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[dataset] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() error {
			once.Do(func() { <-ch })
			return nil
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
