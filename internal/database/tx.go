package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Tx is the part of *sql.Tx that repositories use.  Repository methods that
// take a Tx participate in the caller's transaction and never commit.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transactor runs fn inside one transaction.  fn returning an error rolls
// the transaction back; returning nil commits it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// ErrLockTimeout is returned when MySQL gave up waiting for a row lock
// (1205) or picked the transaction as a deadlock victim (1213).  The whole
// transaction was rolled back and may be retried.
var ErrLockTimeout = errors.New("lock wait timeout")

const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// IsLockTimeout reports whether err came from a lock wait timeout or deadlock.
func IsLockTimeout(err error) bool {
	if errors.Is(err, ErrLockTimeout) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == errLockWaitTimeout || me.Number == errDeadlock
	}
	return false
}

// classify rewrites driver lock errors into ErrLockTimeout.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrLockTimeout) || !IsLockTimeout(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrLockTimeout, err)
}

// SQLTransactor implements Transactor over a *sql.DB.
type SQLTransactor struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewTransactor returns a Transactor using the default isolation level
// (REPEATABLE READ on InnoDB).  Locking reads always see the latest
// committed row version regardless of isolation.
func NewTransactor(db *sql.DB) *SQLTransactor {
	return &SQLTransactor{db: db}
}

// DB exposes the underlying handle for non-transactional reads.
func (t *SQLTransactor) DB() *sql.DB { return t.db }

// WithinTx begins a transaction, runs fn and commits.  Any error from fn,
// or a panic, rolls back.
func (t *SQLTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := t.db.BeginTx(ctx, t.opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, tx); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	committed = true
	return nil
}
