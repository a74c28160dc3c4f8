package txrunner

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/platform/eventbus"
)

// Fn is a unit of work run inside a scoped transaction. The waiver.Client it
// receives must be type-asserted to *sqlx.Tx by repositories built against
// this runner.
type Fn func(ctx context.Context, client waiver.Client, events *eventbus.Buffer) error

// LockRunner is the use-case layer's dependency on a lock-scoped transaction,
// narrow enough that tests can swap *Runner for an in-memory fake without a
// real database.
type LockRunner interface {
	RunWithLock(ctx context.Context, domain Domain, id string, fn Fn) error
}

// Runner opens scoped, optionally locked, transactions against Postgres.
type Runner struct {
	db  *sqlx.DB
	bus eventbus.Bus
}

func NewRunner(db *sqlx.DB, bus eventbus.Bus) *Runner {
	return &Runner{db: db, bus: bus}
}

// RunInTransaction acquires a connection, begins a transaction, runs fn, and
// commits on return or rolls back on error or panic. The connection is
// always released. Events buffered by fn are flushed only after a
// successful commit.
func (r *Runner) RunInTransaction(ctx context.Context, fn Fn) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	events := eventbus.NewBuffer()

	if err := runGuarded(ctx, tx, events, fn); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	events.Flush(ctx, r.bus)
	return nil
}

// RunWithLock is RunInTransaction plus a transaction-scoped Postgres
// advisory lock keyed on domain+id. The lock is released automatically at
// commit or rollback; callers never unlock it explicitly. Each use case is
// expected to name a single lock domain per call — nested RunWithLock calls
// within the same transaction are not supported.
func (r *Runner) RunWithLock(ctx context.Context, domain Domain, id string, fn Fn) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	key := lockKey(domain, id)
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	events := eventbus.NewBuffer()

	if err := runGuarded(ctx, tx, events, fn); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	events.Flush(ctx, r.bus)
	return nil
}

// runGuarded recovers a panic from fn into an error so the caller always
// rolls back cleanly instead of leaking the transaction.
func runGuarded(ctx context.Context, tx *sqlx.Tx, events *eventbus.Buffer, fn Fn) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during scoped transaction: %v", p)
		}
	}()
	return fn(ctx, tx, events)
}

// Tx type-asserts a waiver.Client produced by this runner back to *sqlx.Tx.
func Tx(client waiver.Client) (*sqlx.Tx, error) {
	tx, ok := client.(*sqlx.Tx)
	if !ok {
		return nil, fmt.Errorf("txrunner: client is not a *sqlx.Tx")
	}
	return tx, nil
}
