package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BootstrapConsumer ensures the topic exists before the group reader
// starts, so a fresh cluster does not stall the first subscriber.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, logger *zap.Logger) *Consumer {
	_ = EnsureTopic(ctx, cfg.Brokers, TopicSpec{
		Name:              cfg.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
		MaxWait:           5 * time.Second,
	}, logger)

	return NewConsumer(cfg)
}
