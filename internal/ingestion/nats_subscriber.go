package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// RawBlock is one encoded IndexerTendermintBlock as delivered by the bus.
// Exactly one of Ack and Nak must be called once the block is done with.
type RawBlock struct {
	Subject    string
	Data       []byte
	ReceivedAt time.Time
	Ack        func()
	Nak        func()
}

// SubscriberConfig names the stream and durable consumer blocks are read from.
type SubscriberConfig struct {
	Stream   string
	Subject  string
	Consumer string
}

func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		Stream:   "INDEXER_BLOCKS",
		Subject:  "indexer.blocks.>",
		Consumer: "fillindexer",
	}
}

// BlockSubscriber feeds blocks from a JetStream consumer into a channel.
// Blocks must be applied in height order, so at most one is in flight.
type BlockSubscriber struct {
	js       jetstream.JetStream
	blocks   chan<- RawBlock
	consumer jetstream.ConsumeContext
	logger   zerolog.Logger
}

func NewBlockSubscriber(js jetstream.JetStream, blocks chan<- RawBlock, logger zerolog.Logger) *BlockSubscriber {
	return &BlockSubscriber{js: js, blocks: blocks, logger: logger}
}

// Subscribe creates the durable consumer and starts delivering.
// Explicit ack, max_deliver=5, ack_wait=60s, one message in flight.
func (s *BlockSubscriber) Subscribe(ctx context.Context, cfg SubscriberConfig) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		Durable:       cfg.Consumer,
		FilterSubject: cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       60 * time.Second,
		MaxDeliver:    5,
		MaxAckPending: 1,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", cfg.Consumer, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		raw := RawBlock{
			Subject:    msg.Subject(),
			Data:       msg.Data(),
			ReceivedAt: time.Now(),
			Ack: func() {
				if err := msg.Ack(); err != nil {
					s.logger.Warn().Err(err).Str("subject", msg.Subject()).Msg("ack failed")
				}
			},
			Nak: func() {
				if err := msg.Nak(); err != nil {
					s.logger.Warn().Err(err).Str("subject", msg.Subject()).Msg("nak failed")
				}
			},
		}

		select {
		case s.blocks <- raw:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.Consumer, err)
	}

	s.consumer = cc
	s.logger.Info().Str("subject", cfg.Subject).Str("consumer", cfg.Consumer).Msg("subscribed")
	return nil
}

// Stop stops delivery. Blocks already queued are not affected.
func (s *BlockSubscriber) Stop() {
	if s.consumer != nil {
		s.consumer.Stop()
	}
	s.logger.Info().Msg("block subscriber stopped")
}

// EnsureBlockStream creates the inbound block stream if it does not exist.
// FileStorage, retention=Limits, max_age=72h.
func EnsureBlockStream(ctx context.Context, js jetstream.JetStream, cfg SubscriberConfig) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", cfg.Stream, err)
	}
	return nil
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string, logger zerolog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
