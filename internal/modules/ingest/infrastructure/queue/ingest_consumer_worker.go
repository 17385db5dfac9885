package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ListingHub/internal/modules/ingest/application/service"
	"ListingHub/internal/modules/ingest/domain/listing"
	"ListingHub/internal/modules/ingest/domain/repository"
	"ListingHub/internal/modules/ingest/infrastructure/drive"
	"ListingHub/internal/modules/ingest/infrastructure/mq"
	"ListingHub/pkg/metrics"
	"ListingHub/pkg/redis"
	"ListingHub/pkg/zlog"

	"go.uber.org/zap"
)

type WorkerConfig struct {
	Topic        string
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	MaxFileBytes int64
}

// IngestConsumerWorker consumes file tasks and runs each through
// download -> normalize -> batch-commit -> registry update. Retry state
// travels on the task: a failed attempt below MaxRetries republishes the task
// with RetryCount+1 and a NotBefore delay; at MaxRetries the task is dead-
// lettered and acknowledged.
type IngestConsumerWorker struct {
	consumer mq.Consumer
	pub      mq.Publisher

	downloader *drive.Downloader
	normalize  listing.NormalizeFunc
	committer  *service.BatchCommitter
	registry   repository.FileRegistryRepository
	dlq        repository.DeadLetterRepository
	stats      *service.StatsService

	cfg WorkerConfig

	// stopping is the injected graceful-shutdown probe, checked once per row.
	stopping func() bool
}

func NewIngestConsumerWorker(
	consumer mq.Consumer,
	pub mq.Publisher,
	downloader *drive.Downloader,
	normalize listing.NormalizeFunc,
	committer *service.BatchCommitter,
	registry repository.FileRegistryRepository,
	dlq repository.DeadLetterRepository,
	stats *service.StatsService,
	cfg WorkerConfig,
	stopping func() bool,
) *IngestConsumerWorker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 2000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 60 * time.Second
	}
	return &IngestConsumerWorker{
		consumer:   consumer,
		pub:        pub,
		downloader: downloader,
		normalize:  normalize,
		committer:  committer,
		registry:   registry,
		dlq:        dlq,
		stats:      stats,
		cfg:        cfg,
		stopping:   stopping,
	}
}

func (w *IngestConsumerWorker) Run(ctx context.Context) error {
	if w == nil || w.consumer == nil {
		return errors.New("consumer is nil")
	}
	if w.downloader == nil {
		return errors.New("downloader is nil")
	}
	if w.normalize == nil {
		return errors.New("normalize func is nil")
	}
	if w.committer == nil {
		return errors.New("committer is nil")
	}
	if w.registry == nil {
		return errors.New("file registry repo is nil")
	}
	return w.consumer.Run(ctx, w)
}

func (w *IngestConsumerWorker) Handle(ctx context.Context, msg mq.Message) error {
	var task listing.FileTask
	if err := json.Unmarshal(msg.Value, &task); err != nil || strings.TrimSpace(task.FileID) == "" {
		zlog.Warn("ingest consumer invalid task payload", zap.String("topic", msg.Topic))
		return nil
	}

	// Republished retries carry their backoff as a not-before timestamp.
	if !task.NotBefore.IsZero() {
		if wait := time.Until(task.NotBefore); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	start := time.Now()
	hash := listing.FileHash(task.FileID, task.ModifiedTime)

	rec, err := w.registry.GetByFileID(ctx, task.FileID)
	if err != nil {
		zlog.Warn("ingest consumer registry lookup failed", zap.String("file_id", task.FileID), zap.Error(err))
		return err
	}
	if rec != nil && rec.Status == listing.StatusProcessed && rec.FileHash == hash {
		// Same id, same modified time: already durably ingested.
		zlog.Debug("file unchanged, skipping", zap.String("file_id", task.FileID), zap.String("file_name", task.FileName))
		return nil
	}

	if err := w.registry.UpsertStatus(ctx, task.FileID, task.FileName, listing.StatusProcessing, "", hash); err != nil {
		zlog.Warn("ingest consumer mark processing failed", zap.String("file_id", task.FileID), zap.Error(err))
		return err
	}

	res, procErr := w.processFile(ctx, &task, hash)
	if procErr != nil {
		return w.failTask(ctx, &task, procErr)
	}
	if res.partial {
		zlog.Info("shutdown: saved partial progress",
			zap.String("file_name", task.FileName),
			zap.Int64("rows", res.rows),
		)
		return nil
	}

	if err := w.registry.UpsertStatus(ctx, task.FileID, task.FileName, listing.StatusProcessed, "", hash); err != nil {
		zlog.Warn("ingest consumer mark processed failed", zap.String("file_id", task.FileID), zap.Error(err))
		return err
	}

	metrics.FilesProcessed.Inc(1)
	metrics.ProcessingTime.UpdateSince(start)
	w.logProgress(ctx, res.rows)
	if w.stats != nil {
		w.stats.MaybeTrigger(ctx)
	}

	zlog.Debug("file processed",
		zap.String("file_name", task.FileName),
		zap.Int64("rows", res.rows),
		zap.Int64("inserted", res.inserted),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

type processResult struct {
	rows     int64
	inserted int64
	partial  bool
}

func (w *IngestConsumerWorker) processFile(ctx context.Context, task *listing.FileTask, hash string) (processResult, error) {
	var res processResult

	stream, err := w.downloader.Fetch(ctx, task.FileID, w.cfg.MaxFileBytes)
	if err != nil {
		return res, err
	}
	defer stream.Close()

	lin := listing.Lineage{
		FileID:       task.FileID,
		FileName:     task.FileName,
		FolderID:     task.FolderID,
		FolderName:   task.FolderName,
		Path:         task.Path,
		ModifiedTime: task.ModifiedTime,
		FileHash:     hash,
		TaskID:       task.TaskID,
	}

	batch := make([]listing.RawListing, 0, w.cfg.BatchSize)
	for {
		if w.stopping != nil && w.stopping() {
			return w.savePartial(task, batch, res)
		}

		raw, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return res, err
		}

		batch = append(batch, w.normalize(raw, lin))
		res.rows++

		if len(batch) >= w.cfg.BatchSize {
			n, err := w.committer.Commit(ctx, batch, task.TaskID)
			if err != nil {
				return res, err
			}
			res.inserted += n
			batch = make([]listing.RawListing, 0, w.cfg.BatchSize)
		}
	}

	if len(batch) > 0 {
		n, err := w.committer.Commit(ctx, batch, task.TaskID)
		if err != nil {
			return res, err
		}
		res.inserted += n
	}
	return res, nil
}

// savePartial flushes the in-flight batch and marks the file PARTIAL with the
// row offset. It uses a background-derived context so the flush survives the
// consumer context being torn down; returning nil acknowledges the task, this
// is a clean exit rather than a failure.
func (w *IngestConsumerWorker) savePartial(task *listing.FileTask, batch []listing.RawListing, res processResult) (processResult, error) {
	fctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if len(batch) > 0 {
		n, err := w.committer.Commit(fctx, batch, task.TaskID)
		if err != nil {
			return res, err
		}
		res.inserted += n
	}
	msg := fmt.Sprintf("shutdown at row %d", res.rows)
	if err := w.registry.UpsertStatus(fctx, task.FileID, task.FileName, listing.StatusPartial, msg, ""); err != nil {
		zlog.Warn("mark partial failed", zap.String("file_id", task.FileID), zap.Error(err))
	}
	res.partial = true
	return res, nil
}

// failTask is the single place deciding retry vs terminal.
func (w *IngestConsumerWorker) failTask(ctx context.Context, task *listing.FileTask, procErr error) error {
	errMsg := scrubErrMsg(procErr.Error())
	if err := w.registry.UpsertStatus(ctx, task.FileID, task.FileName, listing.StatusError, errMsg, ""); err != nil {
		zlog.Warn("ingest consumer mark error failed", zap.String("file_id", task.FileID), zap.Error(err))
	}

	if errors.Is(procErr, drive.ErrFileTooLarge) {
		// Resource-limit rejection: the file will not shrink, so neither
		// retry nor dead-letter it.
		zlog.Warn("file rejected: too large",
			zap.String("file_id", task.FileID),
			zap.String("file_name", task.FileName),
			zap.String("error", errMsg),
		)
		return nil
	}

	if task.RetryCount >= w.cfg.MaxRetries {
		entry := &listing.DeadLetterEntry{
			FileId:     task.FileID,
			FileName:   task.FileName,
			Error:      errMsg,
			TaskId:     task.TaskID,
			RetryCount: task.RetryCount,
		}
		if w.dlq == nil {
			return nil
		}
		// A DLQ write failure must not mask the original failure.
		if err := w.dlq.Append(ctx, entry); err != nil {
			zlog.Error("dead letter write failed", zap.String("file_name", task.FileName), zap.Error(err))
			return nil
		}
		metrics.DLQEntries.Inc(1)
		zlog.Warn("task routed to dead letter queue",
			zap.String("file_name", task.FileName),
			zap.String("error", errMsg),
			zap.Int("retry_count", task.RetryCount),
		)
		return nil
	}

	retry := *task
	retry.RetryCount++
	retry.NotBefore = time.Now().Add(w.cfg.RetryBackoff)
	payload, err := json.Marshal(retry)
	if err != nil {
		return procErr
	}
	_, err = w.pub.Publish(ctx, mq.Message{
		Topic: w.cfg.Topic,
		Key:   []byte(task.FileID),
		Value: payload,
		Headers: map[string]string{
			"task_id":     task.TaskID,
			"retry_count": strconv.Itoa(retry.RetryCount),
		},
	})
	if err != nil {
		// Leave the message unacknowledged; the consumer group redelivers it.
		zlog.Warn("retry republish failed, leaving task for redelivery",
			zap.String("file_id", task.FileID),
			zap.Error(err),
		)
		return procErr
	}
	zlog.Warn("task scheduled for retry",
		zap.String("file_name", task.FileName),
		zap.Int("retry_count", retry.RetryCount),
		zap.Duration("backoff", w.cfg.RetryBackoff),
		zap.String("error", errMsg),
	)
	return nil
}

// logProgress keeps cross-worker totals in Redis and logs a progress line
// every 50 files. Best effort; an unreachable Redis never fails the task.
func (w *IngestConsumerWorker) logProgress(ctx context.Context, rows int64) {
	if !redis.IsConnected() {
		return
	}
	totalFiles, err := redis.Incr(ctx, "listinghub_files_processed")
	if err != nil {
		return
	}
	totalRows, err := redis.IncrBy(ctx, "listinghub_rows_ingested", rows)
	if err != nil {
		return
	}
	if totalFiles%50 == 0 {
		zlog.Info("ingestion progress",
			zap.Int64("files", totalFiles),
			zap.Int64("rows", totalRows),
		)
	}
}

func scrubErrMsg(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	low := strings.ToLower(s)
	if strings.Contains(low, "api_key") || strings.Contains(low, "apikey") || strings.Contains(low, "secret") || strings.Contains(low, "bearer ") {
		return "redacted"
	}
	if len(s) > 2000 {
		return s[:2000]
	}
	return s
}
