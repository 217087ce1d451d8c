package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"elastic-sentinel/config"
	"elastic-sentinel/internal/model"
)

const sourceHeader = "source"

// RecordProducer mirrors generated records onto a Kafka topic.
type RecordProducer interface {
	Produce(ctx context.Context, records []model.LogRecord) error
	Close() error
}

type kafkaRecordProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaRecordProducer returns nil when no brokers are configured.
func NewKafkaRecordProducer(lc fx.Lifecycle, cfg *config.Config) (RecordProducer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info().Msg("Kafka brokers not configured, record mirroring disabled")
		return nil, nil
	}
	if cfg.Kafka.LogTopic == "" {
		log.Error().Msg("Kafka log topic is not configured.")
		return nil, errors.New("kafka configuration missing")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.LogTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    500,
		BatchTimeout: 50 * time.Millisecond,
	}
	p := &kafkaRecordProducer{
		writer: writer,
		topic:  cfg.Kafka.LogTopic,
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Kafka producer")
			return p.Close()
		},
	})
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.LogTopic).Msg("Kafka producer initialized")
	return p, nil
}

func (p *kafkaRecordProducer) Produce(ctx context.Context, records []model.LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	messages, err := BuildMessages(records)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		log.Error().Err(err).Int("message_count", len(messages)).Msg("Failed to write messages to Kafka")
		return fmt.Errorf("kafka write: %w", err)
	}

	log.Debug().Int("message_count", len(messages)).Str("topic", p.topic).Msg("Successfully produced messages to Kafka")
	return nil
}

func (p *kafkaRecordProducer) Close() error {
	return p.writer.Close()
}

// BuildMessages encodes records as JSON values keyed by their source, so all records
// of one source land on the same partition in generation order.
func BuildMessages(records []model.LogRecord) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(records))
	for i, record := range records {
		value, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("encoding record %d: %w", i, err)
		}
		source := []byte(record.RecordSource())
		messages = append(messages, kafka.Message{
			Key:     source,
			Value:   value,
			Time:    record.RecordTime(),
			Headers: []kafka.Header{{Key: sourceHeader, Value: source}},
		})
	}
	return messages, nil
}
