// Package kafka publishes run events as JSON messages with
// segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/config"
)

const (
	headerEventType   = "event-type"
	headerContentType = "content-type"
)

// Event is one message. Key selects the partition, Type is carried as a
// header so consumers can route without decoding Value.
type Event struct {
	Key   string
	Type  string
	Value any
}

// Encode turns e into a kafka message with a JSON body.
func Encode(e Event, now time.Time) (kafka.Message, error) {
	body, err := json.Marshal(e.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding %s event %s: %w", e.Type, e.Key, err)
	}
	return kafka.Message{
		Key:   []byte(e.Key),
		Value: body,
		Time:  now,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(e.Type)},
			{Key: headerContentType, Value: []byte("application/json")},
		},
	}, nil
}

// Producer writes events to a single topic. Writes are synchronous and
// acknowledged by all in-sync replicas.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			MaxAttempts:            1,
			BatchTimeout:           5 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", cfg.Topic),
	}
}

// Publish writes events in one batch. Retries are left to the caller.
func (p *Producer) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now()
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := Encode(e, now)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("writing %d events to %s: %w", len(msgs), p.writer.Topic, err)
	}
	for _, m := range msgs {
		p.logger.Debug("event published", "key", string(m.Key), "bytes", len(m.Value))
	}
	return nil
}

// Close flushes pending writes.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Ping succeeds once any configured broker accepts a connection.
func Ping(ctx context.Context, cfg config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	var errs []error
	for _, broker := range cfg.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn.Close()
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("no kafka broker reachable: %w", errors.Join(errs...))
}
