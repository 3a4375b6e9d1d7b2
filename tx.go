package dualdb

import (
	"context"
	"sync/atomic"
)

// Tx is a begin/commit/rollback pass-through over the active backend's
// native transaction. Isolation and atomicity are the engine's own; this
// layer adds placeholder rewriting and parameter checking, nothing else.
type Tx struct {
	conn *Conn
	tx   backendTx
	done atomic.Bool
}

func (t *Tx) checkActive() error {
	if t.done.Load() {
		return newError(ErrClosed, "transaction is finished")
	}
	return t.conn.checkOpen()
}

// Exec runs one statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if err := t.checkActive(); err != nil {
		return 0, err
	}
	query, params, err := t.conn.prepare(query, args)
	if err != nil {
		return 0, err
	}
	return t.tx.exec(ctx, query, params)
}

// Query streams rows produced inside the transaction. Close the Rows before
// issuing further statements on the same transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	if err := t.checkActive(); err != nil {
		return nil, err
	}
	query, params, err := t.conn.prepare(query, args)
	if err != nil {
		return nil, err
	}
	return t.tx.query(ctx, query, params)
}

// QueryRows materializes a result set produced inside the transaction.
func (t *Tx) QueryRows(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := t.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows.drain()
}

// Commit commits the transaction and returns its session.
func (t *Tx) Commit(ctx context.Context) error {
	if !t.done.CompareAndSwap(false, true) {
		return newError(ErrClosed, "transaction is finished")
	}
	return t.tx.commit(ctx)
}

// Rollback aborts the transaction and returns its session. Rolling back a
// finished transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if !t.done.CompareAndSwap(false, true) {
		return nil
	}
	return t.tx.rollback(ctx)
}
