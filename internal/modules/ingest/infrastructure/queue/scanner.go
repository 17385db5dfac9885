package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ListingHub/internal/modules/ingest/domain/listing"
	"ListingHub/internal/modules/ingest/infrastructure/drive"
	"ListingHub/internal/modules/ingest/infrastructure/mq"
	"ListingHub/pkg/zlog"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scanner polls Drive for recently modified CSV files and enqueues one task
// per listed file. It does no deduplication of its own: the worker's registry
// hash comparison decides whether a file actually needs reprocessing.
type Scanner struct {
	storage  drive.Storage
	pub      mq.Publisher
	topic    string
	query    string
	pageSize int
	interval time.Duration
}

func NewScanner(storage drive.Storage, pub mq.Publisher, topic, query string, pageSize int, interval time.Duration) *Scanner {
	if query == "" {
		query = "mimeType='text/csv' and trashed=false"
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Scanner{
		storage:  storage,
		pub:      pub,
		topic:    strings.TrimSpace(topic),
		query:    query,
		pageSize: pageSize,
		interval: interval,
	}
}

// Run loops until ctx is canceled. A listing failure is logged and the loop
// continues on the normal cadence; the circuit breaker inside the downloader
// is the defense against a truly down provider, not this layer.
func (s *Scanner) Run(ctx context.Context) error {
	if s.storage == nil {
		return errors.New("storage is nil")
	}
	if s.pub == nil {
		return errors.New("publisher is nil")
	}

	zlog.Info("drive scanner started",
		zap.String("query", s.query),
		zap.Duration("interval", s.interval),
	)
	for {
		if n, err := s.RunOnce(ctx); err != nil {
			zlog.Warn("drive scan failed", zap.Error(err))
		} else if n > 0 {
			zlog.Debug("drive scan enqueued tasks", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}
}

// RunOnce performs a single poll and returns how many tasks were enqueued.
func (s *Scanner) RunOnce(ctx context.Context) (int, error) {
	files, err := s.storage.List(ctx, s.query, s.pageSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, f := range files {
		task := listing.FileTask{
			FileID:       f.ID,
			FileName:     f.Name,
			ModifiedTime: f.ModifiedTime,
			TaskID:       uuid.NewString(),
			EnqueuedAt:   time.Now(),
		}
		if len(f.Parents) > 0 {
			task.FolderID = f.Parents[0]
		}

		payload, err := json.Marshal(task)
		if err != nil {
			zlog.Warn("task marshal failed", zap.String("file_id", f.ID), zap.Error(err))
			continue
		}
		_, err = s.pub.Publish(ctx, mq.Message{
			Topic: s.topic,
			Key:   []byte(f.ID),
			Value: payload,
			Headers: map[string]string{
				"task_id":   task.TaskID,
				"file_name": f.Name,
			},
		})
		if err != nil {
			zlog.Warn("task publish failed", zap.String("file_id", f.ID), zap.Error(err))
			continue
		}
		published++
		zlog.Debug("submitted file for processing",
			zap.String("file_id", f.ID),
			zap.String("file_name", f.Name),
		)
	}
	return published, nil
}
