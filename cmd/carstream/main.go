package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openfleet/carstream/pkg/bridge"
	"github.com/openfleet/carstream/pkg/bridgeinit"
	"github.com/openfleet/carstream/pkg/fsstore"
	"github.com/openfleet/carstream/pkg/publishers"
)

func main() {
	// --- 1. Load Configuration ---
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := bridgeinit.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// --- 2. Set up Logger ---
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
		log.Warn().Str("log_level", cfg.LogLevel).Msg("Invalid log level, defaulting to 'info'")
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: zerolog.TimeFieldFormat})
	log.Info().Msg("Logger configured.")

	ctx := context.Background()

	// --- 3. Build the Store Client ---
	storeCfg := &fsstore.Config{
		ProjectID:       cfg.ProjectID,
		CollectionName:  cfg.Firestore.Collection,
		CredentialsFile: cfg.Firestore.CredentialsFile,
	}
	store, err := fsstore.NewCarDocStore(ctx, storeCfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Firestore car store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Firestore car store")
		}
	}()

	// --- 4. Build the Broker Client (profile-selected) ---
	var publisher bridge.MessagePublisher
	switch cfg.Broker {
	case bridgeinit.BrokerKafka:
		publisher = publishers.NewKafkaPublisher(&publishers.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, log.Logger)
	case bridgeinit.BrokerPubSub:
		publisher, err = publishers.NewGooglePubSubPublisher(ctx, &publishers.GooglePubSubConfig{
			ProjectID:       cfg.ProjectID,
			TopicID:         cfg.PubSub.TopicID,
			CredentialsFile: cfg.PubSub.CredentialsFile,
		}, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Pub/Sub publisher")
		}
	default:
		log.Fatal().Str("broker", cfg.Broker).Msg("Unknown broker backend")
	}
	defer publisher.Stop()

	// --- 5. Assemble the Bridge and Run the Server ---
	service := bridge.NewService(store, publisher, log.Logger)
	server := bridgeinit.NewServer(cfg, service, log.Logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-stop
	log.Info().Msg("Shutdown signal received.")
	server.Shutdown()
	log.Info().Msg("Shutdown complete.")
}
