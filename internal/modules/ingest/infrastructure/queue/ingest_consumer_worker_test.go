package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"ListingHub/internal/modules/ingest/application/service"
	"ListingHub/internal/modules/ingest/domain/listing"
	"ListingHub/internal/modules/ingest/infrastructure/drive"
	"ListingHub/internal/modules/ingest/infrastructure/mq"
	"ListingHub/internal/modules/ingest/infrastructure/normalize"
	"ListingHub/pkg/breaker"
)

type fakeStorage struct {
	content   string
	metaErr   error
	mediaErr  error
	size      int64
	mediaHits int
}

func (f *fakeStorage) List(context.Context, string, int) ([]drive.FileInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStorage) GetMetadata(context.Context, string) (drive.FileMeta, error) {
	if f.metaErr != nil {
		return drive.FileMeta{}, f.metaErr
	}
	size := f.size
	if size == 0 {
		size = int64(len(f.content))
	}
	return drive.FileMeta{Size: size, SizeKnown: true}, nil
}

func (f *fakeStorage) GetMedia(context.Context, string) (io.ReadCloser, error) {
	f.mediaHits++
	if f.mediaErr != nil {
		return nil, f.mediaErr
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

type statusChange struct {
	fileID   string
	status   string
	errMsg   string
	fileHash string
}

type fakeRegistry struct {
	mu      sync.Mutex
	records map[string]*listing.FileRecord
	changes []statusChange
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{records: make(map[string]*listing.FileRecord)}
}

func (r *fakeRegistry) UpsertStatus(_ context.Context, fileID, filename, status, errMsg, fileHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[fileID]
	if !ok {
		rec = &listing.FileRecord{DriveFileId: fileID, Filename: filename}
		r.records[fileID] = rec
	}
	rec.Status = status
	rec.ErrorMessage = errMsg
	if fileHash != "" {
		rec.FileHash = fileHash
	}
	r.changes = append(r.changes, statusChange{fileID, status, errMsg, fileHash})
	return nil
}

func (r *fakeRegistry) GetByFileID(_ context.Context, fileID string) (*listing.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[fileID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRegistry) List(context.Context, string, int) ([]listing.FileRecord, error) {
	return nil, nil
}

func (r *fakeRegistry) lastStatus(t *testing.T) statusChange {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		t.Fatal("no registry status changes recorded")
	}
	return r.changes[len(r.changes)-1]
}

type fakeRows struct {
	mu       sync.Mutex
	rowKeys  map[string]bool
	inserted []listing.RawListing
}

func newFakeRows() *fakeRows {
	return &fakeRows{rowKeys: make(map[string]bool)}
}

func (f *fakeRows) InsertIgnoringConflicts(_ context.Context, rows []listing.RawListing) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range rows {
		if f.rowKeys[r.RowKey] {
			continue
		}
		f.rowKeys[r.RowKey] = true
		f.inserted = append(f.inserted, r)
		n++
	}
	return n, nil
}

type fakeDLQ struct {
	mu      sync.Mutex
	entries []listing.DeadLetterEntry
}

func (f *fakeDLQ) Append(_ context.Context, e *listing.DeadLetterEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, prev := range f.entries {
		if prev.FileId == e.FileId && prev.TaskId == e.TaskId {
			return nil
		}
	}
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeDLQ) List(context.Context, int) ([]listing.DeadLetterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]listing.DeadLetterEntry(nil), f.entries...), nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []mq.Message
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, msg mq.Message) (mq.PublishResult, error) {
	if f.err != nil {
		return mq.PublishResult{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return mq.PublishResult{}, nil
}

func (f *fakePublisher) Close() error { return nil }

type workerFixture struct {
	worker   *IngestConsumerWorker
	storage  *fakeStorage
	registry *fakeRegistry
	rows     *fakeRows
	dlq      *fakeDLQ
	pub      *fakePublisher
}

func newWorkerFixture(storage *fakeStorage, stopping func() bool) *workerFixture {
	fx := &workerFixture{
		storage:  storage,
		registry: newFakeRegistry(),
		rows:     newFakeRows(),
		dlq:      &fakeDLQ{},
		pub:      &fakePublisher{},
	}
	dl := drive.NewDownloader(storage, breaker.New("test", 100, time.Minute))
	committer := service.NewBatchCommitter(fx.rows, 2)
	fx.worker = NewIngestConsumerWorker(
		nil,
		fx.pub,
		dl,
		normalize.Universal,
		committer,
		fx.registry,
		fx.dlq,
		nil,
		WorkerConfig{
			Topic:        "tasks",
			BatchSize:    2,
			MaxRetries:   3,
			RetryBackoff: time.Millisecond,
			MaxFileBytes: 1 << 20,
		},
		stopping,
	)
	return fx
}

func taskMessage(t *testing.T, task listing.FileTask) mq.Message {
	t.Helper()
	payload, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}
	return mq.Message{Topic: "tasks", Key: []byte(task.FileID), Value: payload}
}

func sampleTask() listing.FileTask {
	return listing.FileTask{
		FileID:       "f-1",
		FileName:     "austin.csv",
		ModifiedTime: "2026-08-01T10:00:00Z",
		TaskID:       "task-1",
		EnqueuedAt:   time.Now(),
	}
}

const sampleCSV = "name,address,city,state,category\n" +
	"Joe's Diner,1 Main St,Austin,TX,Restaurant\n" +
	"Maria's Tacos,2 Oak Ave,Austin,TX,Restaurant\n" +
	"Book Nook,3 Elm Rd,Austin,TX,Bookstore\n"

func TestHandleProcessesFile(t *testing.T) {
	fx := newWorkerFixture(&fakeStorage{content: sampleCSV}, nil)

	if err := fx.worker.Handle(context.Background(), taskMessage(t, sampleTask())); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if got := len(fx.rows.inserted); got != 3 {
		t.Fatalf("inserted %d rows, want 3", got)
	}
	last := fx.registry.lastStatus(t)
	if last.status != listing.StatusProcessed {
		t.Fatalf("final status = %q, want PROCESSED", last.status)
	}
	wantHash := listing.FileHash("f-1", "2026-08-01T10:00:00Z")
	if last.fileHash != wantHash {
		t.Errorf("stored hash = %q, want %q", last.fileHash, wantHash)
	}
	if fx.rows.inserted[0].TaskId != "task-1" {
		t.Errorf("row task lineage = %q", fx.rows.inserted[0].TaskId)
	}
}

func TestHandleSkipsUnchangedFile(t *testing.T) {
	fx := newWorkerFixture(&fakeStorage{content: sampleCSV}, nil)
	task := sampleTask()
	hash := listing.FileHash(task.FileID, task.ModifiedTime)
	fx.registry.records[task.FileID] = &listing.FileRecord{
		DriveFileId: task.FileID,
		Status:      listing.StatusProcessed,
		FileHash:    hash,
	}

	if err := fx.worker.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if fx.storage.mediaHits != 0 {
		t.Fatalf("unchanged file was downloaded %d times", fx.storage.mediaHits)
	}
	if len(fx.registry.changes) != 0 {
		t.Fatalf("unchanged file mutated the registry: %+v", fx.registry.changes)
	}
}

func TestHandleReprocessesModifiedFile(t *testing.T) {
	fx := newWorkerFixture(&fakeStorage{content: sampleCSV}, nil)
	task := sampleTask()
	fx.registry.records[task.FileID] = &listing.FileRecord{
		DriveFileId: task.FileID,
		Status:      listing.StatusProcessed,
		FileHash:    listing.FileHash(task.FileID, "2026-07-01T00:00:00Z"),
	}

	if err := fx.worker.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if fx.storage.mediaHits != 1 {
		t.Fatalf("modified file downloaded %d times, want 1", fx.storage.mediaHits)
	}
	if last := fx.registry.lastStatus(t); last.status != listing.StatusProcessed {
		t.Fatalf("final status = %q, want PROCESSED", last.status)
	}
}

func TestHandleRerunInsertsNothingTwice(t *testing.T) {
	fx := newWorkerFixture(&fakeStorage{content: sampleCSV}, nil)
	task := sampleTask()

	if err := fx.worker.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("first Handle: %v", err)
	}
	// Simulate a redelivery where the PROCESSED mark was lost.
	fx.registry.records[task.FileID].Status = listing.StatusProcessing
	if err := fx.worker.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("second Handle: %v", err)
	}
	if got := len(fx.rows.inserted); got != 3 {
		t.Fatalf("replay inserted extra rows: %d total, want 3", got)
	}
}

func TestHandleInvalidPayloadAcked(t *testing.T) {
	fx := newWorkerFixture(&fakeStorage{}, nil)
	err := fx.worker.Handle(context.Background(), mq.Message{Topic: "tasks", Value: []byte("not json")})
	if err != nil {
		t.Fatalf("invalid payload should be acknowledged, got %v", err)
	}
	if len(fx.registry.changes) != 0 {
		t.Fatal("invalid payload touched the registry")
	}
}

func TestHandleFailureRepublishesRetry(t *testing.T) {
	fx := newWorkerFixture(&fakeStorage{mediaErr: errors.New("503 backend unavailable")}, nil)
	task := sampleTask()

	if err := fx.worker.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("Handle should ack after republishing, got %v", err)
	}

	if last := fx.registry.lastStatus(t); last.status != listing.StatusError {
		t.Fatalf("status = %q, want ERROR", last.status)
	}
	fx.pub.mu.Lock()
	defer fx.pub.mu.Unlock()
	if len(fx.pub.messages) != 1 {
		t.Fatalf("published %d retries, want 1", len(fx.pub.messages))
	}
	var retry listing.FileTask
	if err := json.Unmarshal(fx.pub.messages[0].Value, &retry); err != nil {
		t.Fatalf("unmarshal retry: %v", err)
	}
	if retry.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", retry.RetryCount)
	}
	if retry.NotBefore.IsZero() || !retry.NotBefore.After(time.Now().Add(-time.Second)) {
		t.Errorf("retry not_before = %v", retry.NotBefore)
	}
	if retry.TaskID != task.TaskID {
		t.Errorf("retry task id changed: %q", retry.TaskID)
	}
	if len(fx.dlq.entries) != 0 {
		t.Errorf("retryable failure reached the dead letter queue")
	}
}

func TestHandleExhaustedRetriesDeadLetters(t *testing.T) {
	fx := newWorkerFixture(&fakeStorage{mediaErr: errors.New("503 backend unavailable")}, nil)
	task := sampleTask()
	task.RetryCount = 3

	if err := fx.worker.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("Handle should ack a dead-lettered task, got %v", err)
	}
	if len(fx.pub.messages) != 0 {
		t.Fatalf("exhausted task was republished %d times", len(fx.pub.messages))
	}
	if len(fx.dlq.entries) != 1 {
		t.Fatalf("dead letter entries = %d, want 1", len(fx.dlq.entries))
	}
	e := fx.dlq.entries[0]
	if e.FileId != task.FileID || e.TaskId != task.TaskID || e.RetryCount != 3 {
		t.Errorf("dead letter entry = %+v", e)
	}

	// A redelivery of the same exhausted task must not add a second entry.
	if err := fx.worker.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("redelivered Handle: %v", err)
	}
	if len(fx.dlq.entries) != 1 {
		t.Fatalf("redelivery duplicated the dead letter entry: %d", len(fx.dlq.entries))
	}
}

func TestHandleTooLargeIsTerminalWithoutDLQ(t *testing.T) {
	fx := newWorkerFixture(&fakeStorage{size: 10 << 20, content: "x"}, nil)
	task := sampleTask()

	if err := fx.worker.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("Handle should ack an oversized file, got %v", err)
	}
	if fx.storage.mediaHits != 0 {
		t.Fatal("oversized file content was downloaded")
	}
	if last := fx.registry.lastStatus(t); last.status != listing.StatusError {
		t.Fatalf("status = %q, want ERROR", last.status)
	}
	if len(fx.pub.messages) != 0 {
		t.Fatal("oversized file was scheduled for retry")
	}
	if len(fx.dlq.entries) != 0 {
		t.Fatal("oversized file reached the dead letter queue")
	}
}

func TestHandlePublishFailureLeavesTaskUnacked(t *testing.T) {
	fx := newWorkerFixture(&fakeStorage{mediaErr: errors.New("503 backend unavailable")}, nil)
	fx.pub.err = errors.New("broker unreachable")

	err := fx.worker.Handle(context.Background(), taskMessage(t, sampleTask()))
	if err == nil {
		t.Fatal("Handle must not ack when the retry republish fails")
	}
}

func TestHandleShutdownSavesPartialProgress(t *testing.T) {
	var reads int
	stopping := func() bool {
		reads++
		return reads > 2
	}
	fx := newWorkerFixture(&fakeStorage{content: sampleCSV}, stopping)
	task := sampleTask()

	if err := fx.worker.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("Handle during shutdown: %v", err)
	}

	// Two rows were read before the stop flag flipped; both must be durable.
	if got := len(fx.rows.inserted); got != 2 {
		t.Fatalf("inserted %d rows before shutdown, want 2", got)
	}
	last := fx.registry.lastStatus(t)
	if last.status != listing.StatusPartial {
		t.Fatalf("status = %q, want PARTIAL", last.status)
	}
	if !strings.Contains(last.errMsg, "shutdown at row 2") {
		t.Errorf("partial message = %q, want row offset 2", last.errMsg)
	}
	if len(fx.pub.messages) != 0 || len(fx.dlq.entries) != 0 {
		t.Fatal("shutdown routed the task to retry or dead letter")
	}
}
