package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"ListingHub/internal/modules/ingest/domain/listing"
	"ListingHub/internal/modules/ingest/infrastructure/drive"
)

type fakeLister struct {
	files   []drive.FileInfo
	err     error
	queries []string
}

func (f *fakeLister) List(_ context.Context, query string, _ int) ([]drive.FileInfo, error) {
	f.queries = append(f.queries, query)
	return f.files, f.err
}

func (f *fakeLister) GetMetadata(context.Context, string) (drive.FileMeta, error) {
	return drive.FileMeta{}, errors.New("not implemented")
}

func (f *fakeLister) GetMedia(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func TestScannerEnqueuesOneTaskPerFile(t *testing.T) {
	t.Parallel()
	lister := &fakeLister{files: []drive.FileInfo{
		{ID: "f-1", Name: "austin.csv", ModifiedTime: "2026-08-01T10:00:00Z", Parents: []string{"folder-9"}},
		{ID: "f-2", Name: "dallas.csv", ModifiedTime: "2026-08-02T10:00:00Z"},
	}}
	pub := &fakePublisher{}
	s := NewScanner(lister, pub, "tasks", "", 0, time.Minute)

	n, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 2 {
		t.Fatalf("enqueued %d tasks, want 2", n)
	}
	if len(pub.messages) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.messages))
	}

	var task listing.FileTask
	if err := json.Unmarshal(pub.messages[0].Value, &task); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if task.FileID != "f-1" || task.FileName != "austin.csv" {
		t.Errorf("task = %+v", task)
	}
	if task.FolderID != "folder-9" {
		t.Errorf("folder id = %q", task.FolderID)
	}
	if task.TaskID == "" {
		t.Error("task id not assigned")
	}
	if task.RetryCount != 0 {
		t.Errorf("fresh task retry count = %d", task.RetryCount)
	}
	// Messages are keyed by file id so retries land on the same partition.
	if string(pub.messages[0].Key) != "f-1" {
		t.Errorf("message key = %q", pub.messages[0].Key)
	}
}

func TestScannerDefaultsQuery(t *testing.T) {
	t.Parallel()
	lister := &fakeLister{}
	s := NewScanner(lister, &fakePublisher{}, "tasks", "", 0, time.Minute)

	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(lister.queries) != 1 || lister.queries[0] != "mimeType='text/csv' and trashed=false" {
		t.Errorf("queries = %v", lister.queries)
	}
}

func TestScannerListFailurePropagates(t *testing.T) {
	t.Parallel()
	lister := &fakeLister{err: errors.New("401 invalid credentials")}
	s := NewScanner(lister, &fakePublisher{}, "tasks", "", 0, time.Minute)

	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected listing error")
	}
}

func TestScannerPublishFailureSkipsFile(t *testing.T) {
	t.Parallel()
	lister := &fakeLister{files: []drive.FileInfo{{ID: "f-1", Name: "austin.csv"}}}
	pub := &fakePublisher{err: errors.New("broker unreachable")}
	s := NewScanner(lister, pub, "tasks", "", 0, time.Minute)

	n, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 0 {
		t.Fatalf("counted %d published tasks, want 0", n)
	}
}
