package publishers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/openfleet/carstream/pkg/types"
)

// --- Google Cloud Pub/Sub Publisher Implementation ---

// GooglePubSubConfig holds configuration for the Pub/Sub publisher.
type GooglePubSubConfig struct {
	ProjectID       string
	TopicID         string
	CredentialsFile string
}

// LoadGooglePubSubConfigFromEnv loads Pub/Sub configuration from environment variables.
func LoadGooglePubSubConfigFromEnv() (*GooglePubSubConfig, error) {
	cfg := &GooglePubSubConfig{
		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		TopicID:         os.Getenv("PUBSUB_TOPIC_ID_CARS"),
		CredentialsFile: os.Getenv("GCP_PUBSUB_CREDENTIALS_FILE"),
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("GCP_PROJECT_ID environment variable not set for Pub/Sub")
	}
	if cfg.TopicID == "" {
		cfg.TopicID = DefaultTopicID
	}
	return cfg, nil
}

// GooglePubSubPublisher implements bridge.MessagePublisher for Google Cloud Pub/Sub.
type GooglePubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger zerolog.Logger
}

// NewGooglePubSubPublisher creates a new publisher for Google Cloud Pub/Sub.
func NewGooglePubSubPublisher(ctx context.Context, cfg *GooglePubSubConfig, logger zerolog.Logger) (*GooglePubSubPublisher, error) {
	var opts []option.ClientOption
	pubsubEmulatorHost := os.Getenv("PUBSUB_EMULATOR_HOST")

	if pubsubEmulatorHost != "" {
		logger.Info().Str("emulator_host", pubsubEmulatorHost).Msg("Using Pub/Sub emulator")
		opts = append(opts, option.WithEndpoint(pubsubEmulatorHost), option.WithoutAuthentication())
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		logger.Info().Str("credentials_file", cfg.CredentialsFile).Msg("Using credentials file for Pub/Sub")
	} else {
		logger.Info().Msg("Using Application Default Credentials (ADC) for Pub/Sub")
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}

	topic := client.Topic(cfg.TopicID)
	topic.PublishSettings.DelayThreshold = 100 * time.Millisecond
	topic.PublishSettings.CountThreshold = 100
	topic.PublishSettings.Timeout = 60 * time.Second

	logger.Info().Str("project_id", cfg.ProjectID).Str("topic_id", cfg.TopicID).Msg("GooglePubSubPublisher initialized successfully")
	return &GooglePubSubPublisher{
		client: client,
		topic:  topic,
		logger: logger,
	}, nil
}

// Publish hands one car reading to the Pub/Sub client's background
// publisher and returns immediately: a nil return means handoff accepted,
// not durably delivered. The delivery result is checked in a separate
// goroutine and only logged.
func (p *GooglePubSubPublisher) Publish(ctx context.Context, car types.Car) error {
	data, err := encodeCar(car)
	if err != nil {
		p.logger.Error().Err(err).Str("brand", car.Brand).Msg("Failed to marshal car for Pub/Sub")
		return err
	}

	attributes := map[string]string{
		"message_type": "car-reading",
		"brand":        car.Brand,
		"car_id":       strconv.FormatInt(car.ID, 10),
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	})

	go func() {
		msgID, err := result.Get(context.Background())
		if err != nil {
			p.logger.Error().Err(err).Interface("attributes", attributes).Msg("Failed to publish car reading to Pub/Sub")
			return
		}
		p.logger.Debug().Str("message_id", msgID).Str("topic", p.topic.ID()).Msg("Car reading published successfully to Pub/Sub")
	}()

	return nil
}

// Stop flushes pending messages and closes the Pub/Sub client.
func (p *GooglePubSubPublisher) Stop() {
	p.logger.Info().Msg("Stopping GooglePubSubPublisher...")
	if p.topic != nil {
		p.topic.Stop()
		p.logger.Info().Msg("Pub/Sub topic stopped and flushed.")
	}
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			p.logger.Error().Err(err).Msg("Error closing Pub/Sub client")
		} else {
			p.logger.Info().Msg("Pub/Sub client closed.")
		}
	}
}
