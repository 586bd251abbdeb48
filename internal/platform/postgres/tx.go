package postgres

import (
	"context"
	"database/sql"
	"time"

	dErrors "immersion/pkg/domain-errors"
	txcontext "immersion/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Tx runs a unit of work inside one SQL transaction. The transaction is
// carried in the context so every store touched by the callback (convention,
// assessment, outbox) joins it: aggregate write and event append commit or
// roll back together.
type Tx struct {
	db      *sql.DB
	timeout time.Duration
}

// NewTx builds a transaction runner over db.
func NewTx(db *sql.DB) *Tx {
	return &Tx{db: db}
}

// RunInTx executes fn inside a transaction, committing on nil error.
func (t *Tx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit()
}
