package persistence

import (
	"context"
	"strings"
	"time"

	"ListingHub/internal/modules/ingest/domain/listing"
	"ListingHub/internal/modules/ingest/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type deadLetterRepositoryImpl struct {
	db *gorm.DB
}

func NewDeadLetterRepository(db *gorm.DB) repository.DeadLetterRepository {
	return &deadLetterRepositoryImpl{db: db}
}

func (r *deadLetterRepositoryImpl) Append(ctx context.Context, e *listing.DeadLetterEntry) error {
	if e == nil {
		return nil
	}
	e.Error = strings.TrimSpace(e.Error)
	if len(e.Error) > 2000 {
		e.Error = e.Error[:2000]
	}
	if e.FailedAt.IsZero() {
		e.FailedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(e).Error
}

func (r *deadLetterRepositoryImpl) List(ctx context.Context, limit int) ([]listing.DeadLetterEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []listing.DeadLetterEntry
	err := r.db.WithContext(ctx).Model(&listing.DeadLetterEntry{}).
		Order("failed_at DESC").Limit(limit).Find(&out).Error
	return out, err
}
