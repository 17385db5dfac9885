package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"ListingHub/internal/modules/ingest/domain/listing"
	"ListingHub/internal/modules/ingest/domain/repository"
	"ListingHub/pkg/metrics"
	"ListingHub/pkg/zlog"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const commitMaxRetries = 3

// BatchCommitter flushes normalized rows as idempotent conflict-ignoring
// batches. The semaphore bounds concurrent write transactions per process so
// a bursty queue drain cannot overwhelm the store.
type BatchCommitter struct {
	rows repository.ListingRowRepository
	sem  *semaphore.Weighted
}

func NewBatchCommitter(rows repository.ListingRowRepository, dbConcurrency int64) *BatchCommitter {
	if dbConcurrency <= 0 {
		dbConcurrency = 10
	}
	return &BatchCommitter{
		rows: rows,
		sem:  semaphore.NewWeighted(dbConcurrency),
	}
}

// Commit stamps lineage onto every row missing it, then inserts the whole
// batch in one transaction. Safe to rerun: rows already stored are absorbed
// by the row_key conflict clause, so replaying a batch after a crash inserts
// nothing new. Deadlocks and lock-wait timeouts are retried with exponential
// backoff plus jitter; any other database error propagates.
func (c *BatchCommitter) Commit(ctx context.Context, batch []listing.RawListing, taskID string) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	for i := range batch {
		if batch[i].EtlVersionTag == "" {
			batch[i].EtlVersionTag = listing.EtlVersion
		}
		if batch[i].TaskId == "" {
			batch[i].TaskId = taskID
		}
		if batch[i].RowKey == "" {
			batch[i].RowKey = listing.RowKey(&batch[i])
		}
	}
	metrics.BatchSize.Update(int64(len(batch)))

	var lastErr error
	for attempt := 0; attempt < commitMaxRetries; attempt++ {
		inserted, err := c.tryCommit(ctx, batch)
		if err == nil {
			metrics.RowsInserted.Inc(inserted)
			metrics.RowsSkipped.Inc(int64(len(batch)) - inserted)
			return inserted, nil
		}
		lastErr = err
		if !isDeadlock(err) || attempt == commitMaxRetries-1 {
			return 0, err
		}
		wait := time.Duration(1<<attempt)*time.Second + time.Duration(rand.Int63n(int64(time.Second)))
		zlog.Warn("batch commit deadlock, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(wait):
		}
	}
	return 0, lastErr
}

func (c *BatchCommitter) tryCommit(ctx context.Context, batch []listing.RawListing) (int64, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer c.sem.Release(1)

	metrics.ActiveDBOps.Inc(1)
	defer metrics.ActiveDBOps.Dec(1)

	return c.rows.InsertIgnoringConflicts(ctx, batch)
}

// MySQL 1213 = deadlock found, 1205 = lock wait timeout.
func isDeadlock(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	return false
}
