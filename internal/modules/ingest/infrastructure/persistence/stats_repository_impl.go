package persistence

import (
	"context"
	"errors"

	"ListingHub/internal/modules/ingest/domain/listing"
	"ListingHub/internal/modules/ingest/domain/repository"

	"gorm.io/gorm"
)

type statsRepositoryImpl struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) repository.StatsRepository {
	return &statsRepositoryImpl{db: db}
}

func (r *statsRepositoryImpl) RefreshGlobalSummary(ctx context.Context) error {
	var row struct {
		Total      int64
		States     int64
		Categories int64
		Files      int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS total,
		       COUNT(DISTINCT state) AS states,
		       COUNT(DISTINCT category) AS categories,
		       COUNT(DISTINCT drive_file_id) AS files
		FROM raw_drive_listing`).Scan(&row).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO dashboard_stats_summary
		    (id, total_records, total_states, total_categories, total_files, last_updated)
		VALUES (1, ?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE
		    total_records = VALUES(total_records),
		    total_states = VALUES(total_states),
		    total_categories = VALUES(total_categories),
		    total_files = VALUES(total_files),
		    last_updated = NOW()`,
		row.Total, row.States, row.Categories, row.Files).Error
}

func (r *statsRepositoryImpl) RefreshStateCategory(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO state_category_summary (state, category, record_count, updated_at)
		SELECT state, category, COUNT(*), NOW()
		FROM raw_drive_listing
		GROUP BY state, category
		ON DUPLICATE KEY UPDATE
		    record_count = VALUES(record_count),
		    updated_at = NOW()`).Error
}

func (r *statsRepositoryImpl) GetSummary(ctx context.Context) (*listing.StatsSummary, error) {
	var s listing.StatsSummary
	err := r.db.WithContext(ctx).Where("id = 1").Take(&s).Error
	if err == nil {
		return &s, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *statsRepositoryImpl) TopStateCategories(ctx context.Context, limit int) ([]listing.StateCategorySummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []listing.StateCategorySummary
	err := r.db.WithContext(ctx).Model(&listing.StateCategorySummary{}).
		Order("record_count DESC").Limit(limit).Find(&out).Error
	return out, err
}
