package kafka

import (
	"context"
	"errors"
	"strings"

	"ListingHub/internal/modules/ingest/infrastructure/mq"

	"github.com/IBM/sarama"
)

type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	ClientID string
}

type groupConsumer struct {
	group  sarama.ConsumerGroup
	topics []string
}

func NewConsumer(cfg ConsumerConfig) (mq.Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	groupID := strings.TrimSpace(cfg.GroupID)
	if groupID == "" {
		return nil, errors.New("consumer group id is empty")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("no topics to consume")
	}

	sc := baseConfig(cfg.ClientID)
	// Start from the oldest offset so a brand-new group drains the backlog
	// accumulated before the first worker came up.
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, sc)
	if err != nil {
		return nil, err
	}
	return &groupConsumer{group: group, topics: cfg.Topics}, nil
}

// Run blocks consuming until ctx is canceled. Consume returns on every group
// rebalance, hence the loop.
func (c *groupConsumer) Run(ctx context.Context, handler mq.Handler) error {
	if handler == nil {
		return errors.New("handler is nil")
	}
	claims := &claimRunner{handler: handler}
	for {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.group.Consume(ctx, c.topics, claims); err != nil {
			return err
		}
	}
}

func (c *groupConsumer) Close() error {
	if c == nil || c.group == nil {
		return nil
	}
	return c.group.Close()
}

type claimRunner struct {
	handler mq.Handler
}

func (claimRunner) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (claimRunner) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks a message consumed only after the handler returns nil,
// which is what gives the pipeline its at-least-once property: a crash after
// processing but before the mark redelivers the task, and idempotent writes
// absorb the rerun.
func (r *claimRunner) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for m := range claim.Messages() {
		if err := r.handler.Handle(sess.Context(), toMessage(m)); err == nil {
			sess.MarkMessage(m, "")
		}
	}
	return nil
}

func toMessage(m *sarama.ConsumerMessage) mq.Message {
	msg := mq.Message{
		Topic: m.Topic,
		Key:   m.Key,
		Value: m.Value,
	}
	if len(m.Headers) > 0 {
		msg.Headers = make(map[string]string, len(m.Headers))
		for _, h := range m.Headers {
			if h == nil || len(h.Key) == 0 {
				continue
			}
			msg.Headers[string(h.Key)] = string(h.Value)
		}
	}
	return msg
}
