package scheduler

import (
	"context"
	"time"

	"ListingHub/internal/modules/ingest/application/service"
	"ListingHub/pkg/zlog"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Manager runs the scheduled full stats refresh, a fallback independent of
// the every-Nth-file trigger so the rollups converge even when ingestion is
// idle or the counter store is down.
type Manager struct {
	cron     *cron.Cron
	statsSvc *service.StatsService
}

func NewManager(statsSvc *service.StatsService) *Manager {
	return &Manager{
		cron:     cron.New(),
		statsSvc: statsSvc,
	}
}

func (m *Manager) Start(refreshSpec string) error {
	_, err := m.cron.AddFunc(refreshSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := m.statsSvc.Refresh(ctx); err != nil {
			zlog.Error("scheduled stats refresh failed", zap.Error(err))
			return
		}
		zlog.Info("scheduled stats refresh completed")
	})
	if err != nil {
		return err
	}
	m.cron.Start()
	zlog.Info("scheduler started", zap.String("stats_refresh", refreshSpec))
	return nil
}

func (m *Manager) Stop() {
	m.cron.Stop()
}
