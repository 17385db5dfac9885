package persistence

import (
	"context"

	"ListingHub/internal/modules/ingest/domain/listing"
	"ListingHub/internal/modules/ingest/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type listingRowRepositoryImpl struct {
	db *gorm.DB
}

func NewListingRowRepository(db *gorm.DB) repository.ListingRowRepository {
	return &listingRowRepositoryImpl{db: db}
}

// InsertIgnoringConflicts writes the batch in one statement inside one
// transaction. On MySQL the DoNothing clause renders as ON DUPLICATE KEY
// UPDATE id=id, so rows colliding on row_key are absorbed and RowsAffected
// counts only genuinely new rows.
func (r *listingRowRepositoryImpl) InsertIgnoringConflicts(ctx context.Context, rows []listing.RawListing) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
