package repository

import (
	"context"

	"ListingHub/internal/modules/ingest/domain/listing"
)

// FileRegistryRepository is the sole authority on a file's processing status.
// UpsertStatus overwrites status/error/processed_at unconditionally but keeps
// the stored hash when fileHash is empty, so a transient error does not wipe
// the last-known-good hash. Safe to call redundantly.
type FileRegistryRepository interface {
	UpsertStatus(ctx context.Context, fileID, filename, status, errMsg, fileHash string) error
	GetByFileID(ctx context.Context, fileID string) (*listing.FileRecord, error)
	List(ctx context.Context, status string, limit int) ([]listing.FileRecord, error)
}
