package publishers

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/openfleet/carstream/pkg/types"
)

// --- Kafka Publisher Implementation ---

// KafkaConfig holds configuration for the Kafka publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LoadKafkaConfigFromEnv loads Kafka configuration from environment variables.
func LoadKafkaConfigFromEnv() (*KafkaConfig, error) {
	cfg := &KafkaConfig{
		Topic: os.Getenv("KAFKA_TOPIC_CARS"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Brokers = strings.Split(brokers, ",")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS environment variable not set")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopicID
	}
	return cfg, nil
}

// KafkaPublisher implements bridge.MessagePublisher for Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// NewKafkaPublisher creates a new publisher for Kafka. The writer runs in
// async mode so Publish is a handoff to the writer's internal batcher;
// per-message delivery results arrive on the completion callback and are
// only logged.
func NewKafkaPublisher(cfg *KafkaConfig, logger zerolog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{logger: logger}
	p.writer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
		Async:    true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				p.logger.Error().Err(err).Int("batch_size", len(messages)).Msg("Failed to deliver car readings to Kafka")
				return
			}
			p.logger.Debug().Int("batch_size", len(messages)).Str("topic", cfg.Topic).Msg("Car readings delivered to Kafka")
		},
	}

	logger.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("KafkaPublisher initialized successfully")
	return p
}

// Publish enqueues one car reading on the async writer. An error here is a
// transport-level handoff fault and is returned unchanged to the caller.
func (p *KafkaPublisher) Publish(ctx context.Context, car types.Car) error {
	data, err := encodeCar(car)
	if err != nil {
		p.logger.Error().Err(err).Str("brand", car.Brand).Msg("Failed to marshal car for Kafka")
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(uuid.NewString()),
		Value: data,
	})
}

// Stop flushes and closes the Kafka writer.
func (p *KafkaPublisher) Stop() {
	p.logger.Info().Msg("Stopping KafkaPublisher...")
	if err := p.writer.Close(); err != nil {
		p.logger.Error().Err(err).Msg("Error closing Kafka writer")
	} else {
		p.logger.Info().Msg("Kafka writer closed.")
	}
}
