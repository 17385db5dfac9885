package kafka

import (
	"strings"
	"time"

	"github.com/IBM/sarama"
)

// baseConfig is the sarama config shared by the publisher, the consumer
// group, and the topic admin.
func baseConfig(clientID string) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.ClientID = strings.TrimSpace(clientID)
	sc.Consumer.Group.Session.Timeout = 30 * time.Second
	sc.Consumer.Group.Rebalance.Timeout = 30 * time.Second
	return sc
}
