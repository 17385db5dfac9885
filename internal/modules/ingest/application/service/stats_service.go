package service

import (
	"context"
	"time"

	"ListingHub/internal/modules/ingest/domain/repository"
	"ListingHub/pkg/zlog"

	"go.uber.org/zap"
)

const statsCounterKey = "listinghub_etl_file_count"

// TriggerCounter is the shared atomically-incrementable counter deciding when
// a stats refresh is due. Failures here must never fail ingestion.
type TriggerCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// StatsService recomputes dashboard rollups. A refresh is scheduled every Nth
// successfully processed file rather than per file, trading bounded staleness
// for less load on the store.
type StatsService struct {
	stats   repository.StatsRepository
	counter TriggerCounter
	every   int64
}

func NewStatsService(stats repository.StatsRepository, counter TriggerCounter, every int64) *StatsService {
	if every <= 0 {
		every = 50
	}
	return &StatsService{stats: stats, counter: counter, every: every}
}

// Refresh recomputes both rollups. Upsert-based, so concurrent or repeated
// refreshes overwrite rather than accumulate.
func (s *StatsService) Refresh(ctx context.Context) error {
	if err := s.stats.RefreshGlobalSummary(ctx); err != nil {
		return err
	}
	return s.stats.RefreshStateCategory(ctx)
}

// MaybeTrigger increments the shared counter and schedules an asynchronous
// refresh on every Nth increment. Best effort only: an unreachable counter
// store is logged and ignored.
func (s *StatsService) MaybeTrigger(ctx context.Context) {
	if s.counter == nil {
		return
	}
	v, err := s.counter.Incr(ctx, statsCounterKey)
	if err != nil {
		zlog.Warn("stats trigger counter unavailable", zap.Error(err))
		return
	}
	if v%s.every != 0 {
		return
	}
	go func() {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.Refresh(rctx); err != nil {
			zlog.Error("stats refresh failed", zap.Error(err))
			return
		}
		zlog.Info("dashboard stats refreshed", zap.Int64("counter", v))
	}()
}
