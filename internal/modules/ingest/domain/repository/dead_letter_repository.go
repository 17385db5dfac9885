package repository

import (
	"context"

	"ListingHub/internal/modules/ingest/domain/listing"
)

// DeadLetterRepository stores permanently failed file tasks for triage.
// Append is conflict-ignoring on (file_id, task_id), so a redelivered task
// cannot record itself twice.
type DeadLetterRepository interface {
	Append(ctx context.Context, e *listing.DeadLetterEntry) error
	List(ctx context.Context, limit int) ([]listing.DeadLetterEntry, error)
}
