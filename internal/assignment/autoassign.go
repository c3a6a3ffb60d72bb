package assignment

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// AutoAssigner fills occurrence records with available people. Which people
// are picked is decided by the database.
type AutoAssigner interface {
	AutoAssign(ctx context.Context, recordIDs []string, actorID string) error
}

type pgxAutoAssigner struct {
	pool      *pgxpool.Pool
	batchSize int
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewPgxAutoAssigner calls public.auto_assign_resources in batches of
// batchSize ids, at most ratePerSec batches per second. A non-positive rate
// disables pacing.
func NewPgxAutoAssigner(pool *pgxpool.Pool, batchSize, ratePerSec int, log zerolog.Logger) AutoAssigner {
	return &pgxAutoAssigner{
		pool:      pool,
		batchSize: max(batchSize, 1),
		limiter:   newLimiter(ratePerSec),
		log:       log,
	}
}

func newLimiter(ratePerSec int) *rate.Limiter {
	if ratePerSec <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(ratePerSec), 1)
}

func (a *pgxAutoAssigner) AutoAssign(ctx context.Context, recordIDs []string, actorID string) error {
	const query = `SELECT public.auto_assign_resources($1::uuid[], $2::uuid)`

	return forEachBatch(ctx, recordIDs, a.batchSize, a.limiter, func(ctx context.Context, batch []string) error {
		if _, err := a.pool.Exec(ctx, query, batch, actorID); err != nil {
			return fmt.Errorf("auto assign resources failed: %w", err)
		}
		a.log.Debug().Int("records", len(batch)).Msg("auto assign batch done")
		return nil
	})
}

// forEachBatch calls fn with consecutive slices of ids, waiting on limiter
// before each call.
func forEachBatch(ctx context.Context, ids []string, size int, limiter *rate.Limiter, fn func(context.Context, []string) error) error {
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := fn(ctx, ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}
