package store

import (
	"context"
	"database/sql"
)

// querier is the subset of *sql.DB and *sql.Tx used by the repositories,
// so one statement helper can run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction, committing on success and rolling back
// on error or panic. The connection returns to the pool either way.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// retryOnUniqueViolation runs fn again when a concurrent writer won a race
// for the same unique key. A second violation is returned to the caller.
func retryOnUniqueViolation(fn func() error) error {
	err := fn()
	if IsUniqueViolation(err) {
		err = fn()
	}
	return err
}
