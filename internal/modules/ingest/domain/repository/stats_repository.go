package repository

import (
	"context"

	"ListingHub/internal/modules/ingest/domain/listing"
)

// StatsRepository recomputes dashboard rollups from the row store. Both
// refreshes are upserts keyed so repeated runs overwrite rather than
// accumulate; they are safe to run concurrently with ingestion.
type StatsRepository interface {
	RefreshGlobalSummary(ctx context.Context) error
	RefreshStateCategory(ctx context.Context) error
	GetSummary(ctx context.Context) (*listing.StatsSummary, error)
	TopStateCategories(ctx context.Context, limit int) ([]listing.StateCategorySummary, error)
}
