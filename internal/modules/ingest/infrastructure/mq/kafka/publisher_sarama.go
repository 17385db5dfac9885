package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"ListingHub/internal/modules/ingest/infrastructure/mq"

	"github.com/IBM/sarama"
)

type PublisherConfig struct {
	Brokers  []string
	ClientID string
}

// taskPublisher writes file tasks through an idempotent sync producer.
// WaitForAll plus idempotence means an acked publish survives a broker
// failover; retries of the same publish cannot duplicate the record.
type taskPublisher struct {
	producer sarama.SyncProducer
}

func NewPublisher(cfg PublisherConfig) (mq.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}

	sc := baseConfig(cfg.ClientID)
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	sc.Producer.Retry.Max = 10
	sc.Producer.Retry.Backoff = 100 * time.Millisecond
	// Hash partitioning on the file id keeps every attempt for a file on one
	// partition, so a single file is never processed by two workers at once.
	sc.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, err
	}
	return &taskPublisher{producer: producer}, nil
}

func (p *taskPublisher) Publish(ctx context.Context, msg mq.Message) (mq.PublishResult, error) {
	if ctx != nil && ctx.Err() != nil {
		return mq.PublishResult{}, ctx.Err()
	}
	if strings.TrimSpace(msg.Topic) == "" {
		return mq.PublishResult{}, errors.New("publish without a topic")
	}

	record := &sarama.ProducerMessage{
		Topic: msg.Topic,
		Key:   sarama.ByteEncoder(msg.Key),
		Value: sarama.ByteEncoder(msg.Value),
	}
	for k, v := range msg.Headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		record.Headers = append(record.Headers, sarama.RecordHeader{
			Key:   []byte(strings.TrimSpace(k)),
			Value: []byte(v),
		})
	}

	partition, offset, err := p.producer.SendMessage(record)
	if err != nil {
		return mq.PublishResult{}, err
	}
	return mq.PublishResult{Partition: partition, Offset: offset}, nil
}

func (p *taskPublisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
