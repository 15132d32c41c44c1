package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LeadLocker serializes social cache refreshes of one lead across processes with a
// session-level advisory lock.
type LeadLocker struct {
	pool *pgxpool.Pool
}

func NewLeadLocker(pool *pgxpool.Pool) (*LeadLocker, error) {
	if pool == nil {
		return nil, errors.New("lock pool is nil")
	}
	return &LeadLocker{pool: pool}, nil
}

// WithLead runs fn while holding the lead's lock. The lock lives on a dedicated
// connection and is released when fn returns.
func (l *LeadLocker) WithLead(ctx context.Context, leadID int64, fn func(ctx context.Context) error) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock connection: %w", err)
	}
	defer conn.Release()

	key := LeadLockKey(leadID)
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		return fmt.Errorf("lock lead %d: %w", leadID, err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", key)
	}()

	return fn(ctx)
}

// LeadLockKey derives the advisory lock key for a lead.
func LeadLockKey(leadID int64) int64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "lead_social_cache:%d", leadID)
	return int64(h.Sum64())
}
