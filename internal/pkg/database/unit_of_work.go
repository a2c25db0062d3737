package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// MaxQueryLimit caps every list query; repositories clamp larger limits.
const MaxQueryLimit = 1000

type txContextKey struct{}

// WithTx binds a transaction to the context so repositories resolve it
// instead of the pool.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction bound to the context, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx, ok
}

// ErrCompleted is returned by Commit after the unit of work already rolled
// back, and vice versa. Repeating the same call is a no-op.
var ErrCompleted = errors.New("unit of work already completed")

// UnitOfWork scopes one transaction over one orchestrated operation.
// Begin is idempotent within the scope; Commit and Rollback are idempotent
// after the first completing call. Engines never commit; only the scope
// owner does.
type UnitOfWork struct {
	db *DB

	tx        pgx.Tx
	completed bool
	committed bool
}

func NewUnitOfWork(db *DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Begin opens the transaction and returns a context carrying it. Calling
// Begin again inside the same scope returns the same transaction.
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if u.completed {
		return ctx, ErrCompleted
	}
	if u.tx != nil {
		return WithTx(ctx, u.tx), nil
	}

	tx, err := u.db.BeginTx(ctx)
	if err != nil {
		return ctx, fmt.Errorf("begin transaction: %w", err)
	}
	u.tx = tx
	return WithTx(ctx, tx), nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.completed {
		if u.committed {
			return nil
		}
		return ErrCompleted
	}
	if u.tx == nil {
		return errors.New("unit of work not begun")
	}

	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	u.completed = true
	u.committed = true
	return nil
}

func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.completed || u.tx == nil {
		return nil
	}

	u.completed = true
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// RunInTx executes fn inside a unit of work: commit on normal return,
// rollback on error or panic. Errors from fn propagate unchanged.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	uow := NewUnitOfWork(db)
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := uow.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback error: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	return uow.Commit(ctx)
}
