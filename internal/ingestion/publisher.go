package ingestion

import (
	"FillIndexer/internal/message"
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// KeyHeader carries the hex-encoded message key, since NATS has no key field.
const KeyHeader = "Fillindexer-Key"

// Publisher sends consolidated messages to JetStream, one subject per topic:
// {prefix}.{topic}.
type Publisher struct {
	js     jetstream.JetStream
	prefix string
}

var _ message.Publisher = (*Publisher)(nil)

func NewPublisher(js jetstream.JetStream, prefix string) *Publisher {
	return &Publisher{js: js, prefix: prefix}
}

// Subject returns the subject a topic is published on.
func (p *Publisher) Subject(topic message.Topic) string {
	return p.prefix + "." + string(topic)
}

// Publish sends msgs in order and stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, msgs []message.ConsolidatedMessage) error {
	for i, m := range msgs {
		out := nats.NewMsg(p.Subject(m.Topic))
		out.Data = m.Value
		if len(m.Key) > 0 {
			out.Header.Set(KeyHeader, hex.EncodeToString(m.Key))
		}
		if _, err := p.js.PublishMsg(ctx, out); err != nil {
			return fmt.Errorf("publish %s (%d of %d): %w", m.Topic, i+1, len(msgs), err)
		}
	}
	return nil
}

// EnsureOutboundStream creates the stream holding every published topic.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream, name, prefix string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      name,
		Subjects:  []string{prefix + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream %s: %w", name, err)
	}
	return nil
}
