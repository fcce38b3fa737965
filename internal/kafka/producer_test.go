package kafka_test

import (
	"FillIndexer/internal/kafka"
	"FillIndexer/internal/message"
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSendsOneMessageEach(t *testing.T) {
	cfg := kafka.SaramaConfig(kafka.DefaultProducerConfig([]string{"localhost:9092"}))
	producer := mocks.NewSyncProducer(t, cfg)

	var seen []*sarama.ProducerMessage
	record := func(topic string, key string) mocks.MessageChecker {
		return func(m *sarama.ProducerMessage) error {
			if m.Topic != topic {
				return errors.New("unexpected topic " + m.Topic)
			}
			if key == "" {
				if m.Key != nil {
					return errors.New("unexpected key")
				}
			} else {
				k, err := m.Key.Encode()
				if err != nil {
					return err
				}
				if string(k) != key {
					return errors.New("unexpected key " + string(k))
				}
			}
			seen = append(seen, m)
			return nil
		}
	}
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(record(string(message.TopicSubaccounts), "sub"))
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(record(string(message.TopicTrades), "0"))
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(record(string(message.TopicMarkets), ""))

	p := kafka.NewPublisher(producer, zerolog.Nop())
	err := p.Publish(context.Background(), []message.ConsolidatedMessage{
		{Topic: message.TopicSubaccounts, Key: []byte("sub"), Value: []byte(`{}`)},
		{Topic: message.TopicTrades, Key: []byte("0"), Value: []byte(`{}`)},
		{Topic: message.TopicMarkets, Value: []byte(`{}`)},
	})
	require.NoError(t, err)
	assert.Len(t, seen, 3)
	require.NoError(t, p.Close())
}

func TestPublishReportsFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := kafka.NewPublisher(producer, zerolog.Nop())
	err := p.Publish(context.Background(), []message.ConsolidatedMessage{
		{Topic: message.TopicVulcan, Key: []byte{1}, Value: []byte(`{}`)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestPublishNothing(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	p := kafka.NewPublisher(producer, zerolog.Nop())
	require.NoError(t, p.Publish(context.Background(), nil))
	require.NoError(t, p.Close())
}
