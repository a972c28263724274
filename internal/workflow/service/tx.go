package service

import (
	"context"
	"sync"
	"time"

	dErrors "dealflow/pkg/domain-errors"
)

// StoreTx provides the unit-of-work boundary for workflow mutations.
// Implementations may wrap a database transaction or, in-memory, a coarse lock.
// fn receives a context that store calls must use to join the unit of work.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Snapshotter is implemented by in-memory stores so a failed unit of work can
// be rolled back.
type Snapshotter interface {
	Snapshot() (restore func())
}

// defaultTxTimeout is the maximum duration for a unit of work.
const defaultTxTimeout = 5 * time.Second

// inMemoryStoreTx serializes units of work behind one lock and restores store
// snapshots when fn fails.
type inMemoryStoreTx struct {
	mu           sync.Mutex
	participants []Snapshotter
	timeout      time.Duration
}

// NewInMemoryStoreTx builds the in-memory boundary over every participant that
// supports snapshots. Participants that do not are ignored.
func NewInMemoryStoreTx(participants ...any) StoreTx {
	t := &inMemoryStoreTx{timeout: defaultTxTimeout}
	for _, p := range participants {
		if snap, ok := p.(Snapshotter); ok {
			t.participants = append(t.participants, snap)
		}
	}
	return t
}

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	restores := make([]func(), 0, len(t.participants))
	for _, p := range t.participants {
		restores = append(restores, p.Snapshot())
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}
