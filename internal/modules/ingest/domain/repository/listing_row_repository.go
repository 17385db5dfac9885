package repository

import (
	"context"

	"ListingHub/internal/modules/ingest/domain/listing"
)

// ListingRowRepository persists normalized rows. InsertIgnoringConflicts must
// run the whole batch in one transaction and silently absorb rows whose
// row_key already exists, returning only the count actually inserted.
type ListingRowRepository interface {
	InsertIgnoringConflicts(ctx context.Context, rows []listing.RawListing) (int64, error)
}
