// Package kafka publishes consolidated messages to Kafka.
package kafka

import (
	"FillIndexer/internal/message"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// ProducerConfig configures the underlying sarama producer.
type ProducerConfig struct {
	Brokers      []string
	ClientID     string
	RequiredAcks sarama.RequiredAcks
	MaxRetry     int
	RetryBackoff time.Duration
}

func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		ClientID:     "fillindexer",
		RequiredAcks: sarama.WaitForAll,
		MaxRetry:     3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// SaramaConfig builds the sarama config for cfg. Messages of one key must
// stay ordered, so the producer is idempotent with one request in flight.
func SaramaConfig(cfg ProducerConfig) *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = cfg.ClientID
	c.Producer.RequiredAcks = cfg.RequiredAcks
	c.Producer.Retry.Max = cfg.MaxRetry
	c.Producer.Retry.Backoff = cfg.RetryBackoff
	c.Producer.Return.Successes = true
	c.Producer.Return.Errors = true
	c.Producer.Partitioner = sarama.NewHashPartitioner
	c.Producer.Compression = sarama.CompressionSnappy
	c.Producer.Idempotent = true
	c.Net.MaxOpenRequests = 1
	return c
}

// Publisher sends every message of a batch synchronously and in order.
type Publisher struct {
	producer sarama.SyncProducer
	logger   zerolog.Logger
}

var _ message.Publisher = (*Publisher)(nil)

func NewPublisher(producer sarama.SyncProducer, logger zerolog.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// Dial connects a sync producer to the brokers in cfg.
func Dial(cfg ProducerConfig, logger zerolog.Logger) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, SaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	logger.Info().Strs("brokers", cfg.Brokers).Msg("kafka producer started")
	return NewPublisher(producer, logger), nil
}

func (p *Publisher) Publish(ctx context.Context, msgs []message.ConsolidatedMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out := make([]*sarama.ProducerMessage, 0, len(msgs))
	for _, m := range msgs {
		pm := &sarama.ProducerMessage{
			Topic: string(m.Topic),
			Value: sarama.ByteEncoder(m.Value),
		}
		if m.Key != nil {
			pm.Key = sarama.ByteEncoder(m.Key)
		}
		out = append(out, pm)
	}

	if err := p.producer.SendMessages(out); err != nil {
		var perrs sarama.ProducerErrors
		if errors.As(err, &perrs) && len(perrs) > 0 {
			for _, pe := range perrs {
				p.logger.Error().Err(pe.Err).Str("topic", pe.Msg.Topic).Msg("kafka send failed")
			}
			err = perrs[0].Err
		}
		return fmt.Errorf("kafka: send %d messages: %w", len(out), err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
