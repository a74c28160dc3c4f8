package txrunner

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchedulerLock gates per-league waiver sweeps across multiple
// cmd/waiverprocessor replicas so two instances never resolve the same
// league-week concurrently. It is session-scoped rather than
// transaction-scoped (pg_try_advisory_lock/pg_advisory_unlock, not the
// _xact variants RunWithLock uses below) because one sweep spans several
// independent Runner transactions and the lock must stay held across all of
// them. It holds its own pgxpool.Pool, separate from the API server's
// *sqlx.DB, so a stuck sweep can't starve the HTTP connection pool.
type SchedulerLock struct {
	pool *pgxpool.Pool
}

func NewSchedulerLock(pool *pgxpool.Pool) *SchedulerLock {
	return &SchedulerLock{pool: pool}
}

// TryAcquire attempts to take the sweep lock for domain+id without
// blocking. ok is false if another replica already holds it. The returned
// release func must be called once the sweep for this id is done; it
// no-ops if acquisition failed.
func (s *SchedulerLock) TryAcquire(ctx context.Context, domain Domain, id string) (release func(context.Context), ok bool, err error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return func(context.Context) {}, false, fmt.Errorf("acquire pgx connection: %w", err)
	}

	key := lockKey(domain, id)

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		conn.Release()
		return func(context.Context) {}, false, fmt.Errorf("try advisory lock: %w", err)
	}

	if !acquired {
		conn.Release()
		return func(context.Context) {}, false, nil
	}

	release = func(releaseCtx context.Context) {
		_, _ = conn.Exec(releaseCtx, "SELECT pg_advisory_unlock($1)", key)
		conn.Release()
	}
	return release, true, nil
}
