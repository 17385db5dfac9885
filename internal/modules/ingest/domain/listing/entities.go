package listing

import (
	"database/sql"
	"time"
)

// File processing statuses. A file revisits the cycle only when its hash
// changes; within one attempt PROCESSING moves to exactly one terminal state.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusProcessed  = "PROCESSED"
	StatusPartial    = "PARTIAL"
	StatusError      = "ERROR"
)

const SourceGoogleDrive = "google_drive"

// EtlVersion stamps every persisted row for lineage.
const EtlVersion = "2.0.0"

// RawListing is one canonical business record plus lineage back to the file
// and task that produced it. row_key is the natural business key digest; the
// unique index on it is what makes batch commits idempotent.
type RawListing struct {
	Id             int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RowKey         string  `gorm:"column:row_key;type:char(32);not null;uniqueIndex:uniq_raw_listing_row"`
	Name           string  `gorm:"column:name;type:varchar(255);not null"`
	Address        string  `gorm:"column:address;type:varchar(512)"`
	Website        string  `gorm:"column:website;type:varchar(512)"`
	PhoneNumber    string  `gorm:"column:phone_number;type:varchar(64)"`
	ReviewsCount   int64   `gorm:"column:reviews_count;type:bigint;not null;default:0"`
	ReviewsAverage float64 `gorm:"column:reviews_average;type:double;not null;default:0"`
	Category       string  `gorm:"column:category;type:varchar(128);index:idx_raw_listing_category"`
	Subcategory    string  `gorm:"column:subcategory;type:varchar(128)"`
	City           string  `gorm:"column:city;type:varchar(128)"`
	State          string  `gorm:"column:state;type:varchar(64);index:idx_raw_listing_state"`
	Area           string  `gorm:"column:area;type:varchar(128)"`

	DriveFileId       string `gorm:"column:drive_file_id;type:varchar(128);not null;index:idx_raw_listing_file"`
	DriveFileName     string `gorm:"column:drive_file_name;type:varchar(255)"`
	DriveFolderId     string `gorm:"column:drive_folder_id;type:varchar(128)"`
	DriveFolderName   string `gorm:"column:drive_folder_name;type:varchar(255)"`
	DrivePath         string `gorm:"column:drive_path;type:varchar(512)"`
	DriveUploadedTime string `gorm:"column:drive_uploaded_time;type:varchar(40)"`
	Source            string `gorm:"column:source;type:varchar(30);not null"`
	EtlVersionTag     string `gorm:"column:etl_version;type:varchar(20);not null"`
	TaskId            string `gorm:"column:task_id;type:varchar(64)"`
	FileHash          string `gorm:"column:file_hash;type:char(32);not null"`

	CreatedAt time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (RawListing) TableName() string { return "raw_drive_listing" }

// FileRecord tracks per-file processing status, one row per Drive file.
// Mutated only through upserts; never deleted.
type FileRecord struct {
	Id           int64        `gorm:"column:id;primaryKey;autoIncrement"`
	DriveFileId  string       `gorm:"column:drive_file_id;type:varchar(128);not null;uniqueIndex:uniq_file_registry_file"`
	Filename     string       `gorm:"column:filename;type:varchar(255)"`
	Status       string       `gorm:"column:status;type:varchar(20);not null;index:idx_file_registry_status"`
	ErrorMessage string       `gorm:"column:error_message;type:varchar(2048)"`
	FileHash     string       `gorm:"column:file_hash;type:char(32)"`
	ProcessedAt  sql.NullTime `gorm:"column:processed_at;type:datetime"`
	CreatedAt    time.Time    `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;type:datetime;not null"`
}

func (FileRecord) TableName() string { return "file_registry" }

// DeadLetterEntry records a file/task that exhausted its retry budget.
// Append-only; the unique (file_id, task_id) pair keeps redelivered tasks
// from writing the same entry twice.
type DeadLetterEntry struct {
	Id         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	FileId     string    `gorm:"column:file_id;type:varchar(128);not null;uniqueIndex:uniq_dlq_file_task"`
	FileName   string    `gorm:"column:file_name;type:varchar(255)"`
	Error      string    `gorm:"column:error;type:varchar(2000)"`
	TaskId     string    `gorm:"column:task_id;type:varchar(64);not null;uniqueIndex:uniq_dlq_file_task"`
	RetryCount int       `gorm:"column:retry_count;type:int;not null;default:0"`
	FailedAt   time.Time `gorm:"column:failed_at;type:datetime;not null"`
}

func (DeadLetterEntry) TableName() string { return "etl_dead_letter" }

// StatsSummary is the single-row dashboard rollup, overwritten on refresh.
type StatsSummary struct {
	Id              int64     `gorm:"column:id;primaryKey"`
	TotalRecords    int64     `gorm:"column:total_records;type:bigint;not null"`
	TotalStates     int64     `gorm:"column:total_states;type:bigint;not null"`
	TotalCategories int64     `gorm:"column:total_categories;type:bigint;not null"`
	TotalFiles      int64     `gorm:"column:total_files;type:bigint;not null"`
	LastUpdated     time.Time `gorm:"column:last_updated;type:datetime;not null"`
}

func (StatsSummary) TableName() string { return "dashboard_stats_summary" }

type StateCategorySummary struct {
	Id          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	State       string    `gorm:"column:state;type:varchar(64);not null;uniqueIndex:uniq_state_category"`
	Category    string    `gorm:"column:category;type:varchar(128);not null;uniqueIndex:uniq_state_category"`
	RecordCount int64     `gorm:"column:record_count;type:bigint;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (StateCategorySummary) TableName() string { return "state_category_summary" }
