package listing

import "time"

// FileTask is the unit of work the Scanner enqueues and the worker consumes,
// one per discovered Drive file. Retry state rides on the task itself:
// a failed attempt republishes the task with RetryCount+1 and a NotBefore
// in the future, so the queue needs no server-side delay support.
type FileTask struct {
	FileID       string    `json:"file_id"`
	FileName     string    `json:"file_name"`
	FolderID     string    `json:"folder_id,omitempty"`
	FolderName   string    `json:"folder_name,omitempty"`
	Path         string    `json:"path,omitempty"`
	ModifiedTime string    `json:"modified_time"`
	TaskID       string    `json:"task_id"`
	RetryCount   int       `json:"retry_count"`
	NotBefore    time.Time `json:"not_before,omitempty"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Lineage is the file provenance attached to every normalized row.
type Lineage struct {
	FileID       string
	FileName     string
	FolderID     string
	FolderName   string
	Path         string
	ModifiedTime string
	FileHash     string
	TaskID       string
}

// NormalizeFunc canonicalizes one raw CSV record. Implementations must be
// deterministic and side-effect-free; the pipeline depends on nothing beyond
// that.
type NormalizeFunc func(raw map[string]string, lin Lineage) RawListing
