package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"ListingHub/internal/modules/ingest/domain/listing"
	"ListingHub/internal/modules/ingest/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type fileRegistryRepositoryImpl struct {
	db *gorm.DB
}

func NewFileRegistryRepository(db *gorm.DB) repository.FileRegistryRepository {
	return &fileRegistryRepositoryImpl{db: db}
}

func (r *fileRegistryRepositoryImpl) UpsertStatus(ctx context.Context, fileID, filename, status, errMsg, fileHash string) error {
	errMsg = strings.TrimSpace(errMsg)
	if len(errMsg) > 2048 {
		errMsg = errMsg[:2048]
	}
	now := time.Now()
	rec := listing.FileRecord{
		DriveFileId:  strings.TrimSpace(fileID),
		Filename:     strings.TrimSpace(filename),
		Status:       status,
		ErrorMessage: errMsg,
		FileHash:     fileHash,
		ProcessedAt:  sql.NullTime{Time: now, Valid: true},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// Single round trip, no read-before-write. An empty incoming hash keeps
	// the stored one so transient errors do not wipe the last-known-good hash.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "drive_file_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":        status,
			"error_message": errMsg,
			"file_hash":     gorm.Expr("IF(VALUES(file_hash) = '', file_hash, VALUES(file_hash))"),
			"processed_at":  now,
			"updated_at":    now,
		}),
	}).Create(&rec).Error
}

func (r *fileRegistryRepositoryImpl) GetByFileID(ctx context.Context, fileID string) (*listing.FileRecord, error) {
	var rec listing.FileRecord
	err := r.db.WithContext(ctx).Where("drive_file_id = ?", fileID).Take(&rec).Error
	if err == nil {
		return &rec, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *fileRegistryRepositoryImpl) List(ctx context.Context, status string, limit int) ([]listing.FileRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Model(&listing.FileRecord{}).Order("updated_at DESC").Limit(limit)
	if status = strings.TrimSpace(status); status != "" {
		q = q.Where("status = ?", status)
	}
	var out []listing.FileRecord
	err := q.Find(&out).Error
	return out, err
}
