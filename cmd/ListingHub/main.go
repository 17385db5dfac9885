package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	httpServer "ListingHub/api/http"
	"ListingHub/internal/config"
	"ListingHub/internal/initial"
	"ListingHub/internal/modules/ingest/application/service"
	"ListingHub/internal/modules/ingest/infrastructure/drive"
	"ListingHub/internal/modules/ingest/infrastructure/mq/kafka"
	"ListingHub/internal/modules/ingest/infrastructure/normalize"
	"ListingHub/internal/modules/ingest/infrastructure/persistence"
	"ListingHub/internal/modules/ingest/infrastructure/queue"
	"ListingHub/internal/modules/ingest/interface/scheduler"
	"ListingHub/pkg/breaker"
	"ListingHub/pkg/zlog"

	"go.uber.org/zap"
)

func main() {
	conf := config.GetConfig()
	zlog.Init(conf.LogConfig.LogPath)
	defer zlog.Sync()

	if err := initial.InitGorm(); err != nil {
		zlog.Fatal("mysql init failed", zap.Error(err))
	}
	defer initial.CloseGorm()
	initial.InitRedis()
	defer initial.CloseRedis()

	if err := kafka.EnsureTopic(kafka.TopicAdminConfig{
		Brokers:  conf.KafkaConfig.Brokers,
		ClientID: conf.KafkaConfig.ClientID,
	}, conf.KafkaConfig.TaskTopic, conf.KafkaConfig.Partitions, conf.KafkaConfig.Replication); err != nil {
		zlog.Fatal("kafka topic provisioning failed", zap.Error(err))
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:  conf.KafkaConfig.Brokers,
		ClientID: conf.KafkaConfig.ClientID,
	})
	if err != nil {
		zlog.Fatal("kafka publisher init failed", zap.Error(err))
	}
	defer pub.Close()

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:  conf.KafkaConfig.Brokers,
		GroupID:  conf.KafkaConfig.ConsumerGroupID,
		Topics:   []string{conf.KafkaConfig.TaskTopic},
		ClientID: conf.KafkaConfig.ClientID,
	})
	if err != nil {
		zlog.Fatal("kafka consumer init failed", zap.Error(err))
	}
	defer consumer.Close()

	rowRepo := persistence.NewListingRowRepository(initial.GormDB)
	registryRepo := persistence.NewFileRegistryRepository(initial.GormDB)
	dlqRepo := persistence.NewDeadLetterRepository(initial.GormDB)
	statsRepo := persistence.NewStatsRepository(initial.GormDB)

	committer := service.NewBatchCommitter(rowRepo, conf.EtlConfig.DBConcurrency)
	statsSvc := service.NewStatsService(statsRepo, persistence.NewRedisCounter(), conf.EtlConfig.StatsRefreshEvery)

	storage := drive.NewClient(
		conf.DriveConfig.BaseURL,
		conf.DriveConfig.AccessToken,
		time.Duration(conf.DriveConfig.TimeoutSeconds)*time.Second,
	)
	// Breaker state is per process: each worker instance detects a degraded
	// provider on its own.
	brk := breaker.New("drive",
		conf.EtlConfig.BreakerFailureThreshold,
		time.Duration(conf.EtlConfig.BreakerRecoverySeconds)*time.Second,
	)
	downloader := drive.NewDownloader(storage, brk)

	var stopRequested atomic.Bool
	worker := queue.NewIngestConsumerWorker(
		consumer,
		pub,
		downloader,
		normalize.Universal,
		committer,
		registryRepo,
		dlqRepo,
		statsSvc,
		queue.WorkerConfig{
			Topic:        conf.KafkaConfig.TaskTopic,
			BatchSize:    conf.EtlConfig.BatchSize,
			MaxRetries:   conf.EtlConfig.MaxRetries,
			RetryBackoff: time.Duration(conf.EtlConfig.RetryBackoffSeconds) * time.Second,
			MaxFileBytes: conf.EtlConfig.MaxFileSizeMB * 1024 * 1024,
		},
		stopRequested.Load,
	)

	scanner := queue.NewScanner(
		storage,
		pub,
		conf.KafkaConfig.TaskTopic,
		conf.DriveConfig.Query,
		conf.DriveConfig.PageSize,
		time.Duration(conf.DriveConfig.ScanIntervalSeconds)*time.Second,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			zlog.Error("ingest worker stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := scanner.Run(ctx); err != nil && ctx.Err() == nil {
			zlog.Error("scanner stopped", zap.Error(err))
		}
	}()

	sched := scheduler.NewManager(statsSvc)
	if err := sched.Start(conf.EtlConfig.StatsRefreshCron); err != nil {
		zlog.Fatal("scheduler start failed", zap.Error(err))
	}
	defer sched.Stop()

	go func() {
		addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
		zlog.Info("operator api listening", zap.String("addr", addr))
		engine := httpServer.NewEngine(registryRepo, dlqRepo, statsRepo, statsSvc)
		if err := engine.Run(addr); err != nil {
			zlog.Fatal("operator api failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutdown requested, draining in-flight work")
	// Flag first so in-flight files flush their current batch and mark
	// PARTIAL, then cancel the consume loops.
	stopRequested.Store(true)
	time.Sleep(2 * time.Second)
	cancel()

	zlog.Info("listinghub stopped")
}
