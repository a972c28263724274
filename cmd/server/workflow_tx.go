package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"dealflow/internal/platform/postgres"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/platform/tx"
)

const defaultWorkflowTxTimeout = 5 * time.Second

// workflowPostgresTx runs a unit of work in one database transaction. Stores
// join it through the *sql.Tx carried on the context. A unit that fails with a
// serialization failure, deadlock or dropped connection is retried once.
type workflowPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
	logger  *slog.Logger
}

func newWorkflowPostgresTx(db *sql.DB, timeout time.Duration, logger *slog.Logger) *workflowPostgresTx {
	return &workflowPostgresTx{db: db, timeout: timeout, logger: logger}
}

func (t *workflowPostgresTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultWorkflowTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := t.runOnce(ctx, fn)
	if err == nil || !postgres.IsRetryable(err) || ctx.Err() != nil {
		return t.classify(ctx, err)
	}
	if t.logger != nil {
		t.logger.WarnContext(ctx, "retrying workflow transaction", "error", err)
	}
	return t.classify(ctx, t.runOnce(ctx, fn))
}

func (t *workflowPostgresTx) runOnce(ctx context.Context, fn func(txCtx context.Context) error) error {
	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// classify leaves domain errors untouched and maps raw driver failures.
func (t *workflowPostgresTx) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if ctx.Err() != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction timed out")
	}
	if postgres.IsRetryable(err) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "database temporarily unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "transaction failed")
}
