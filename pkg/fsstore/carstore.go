// Package fsstore implements the bridge's CarStore against Google Cloud
// Firestore. Faults surface raw from this layer; normalizing them is the
// bridge's job.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/openfleet/carstream/pkg/stream"
	"github.com/openfleet/carstream/pkg/types"
)

// Config holds configuration for the Firestore-backed car store.
type Config struct {
	ProjectID       string
	CollectionName  string // e.g., "cars"
	CredentialsFile string // Optional, for a specific service account
}

// LoadConfigFromEnv loads the car store configuration from the environment.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		CollectionName:  os.Getenv("FIRESTORE_COLLECTION_CARS"),
		CredentialsFile: os.Getenv("GCP_FIRESTORE_CREDENTIALS_FILE"),
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("GCP_PROJECT_ID environment variable not set for Firestore")
	}
	if cfg.CollectionName == "" {
		cfg.CollectionName = "cars"
	}
	return cfg, nil
}

// CarDocStore implements bridge.CarStore using Google Cloud Firestore.
type CarDocStore struct {
	client     *firestore.Client
	collection string
	logger     zerolog.Logger
}

// NewCarDocStore creates a store backed by Firestore.
// For the emulator, ensure FIRESTORE_EMULATOR_HOST is set; the client
// library detects it automatically.
func NewCarDocStore(ctx context.Context, cfg *Config, logger zerolog.Logger) (*CarDocStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		logger.Info().Str("credentials_file", cfg.CredentialsFile).Msg("Using specified credentials file for Firestore")
	} else if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		logger.Info().Msg("Using Application Default Credentials (ADC) for Firestore")
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		logger.Error().Err(err).Str("project_id", cfg.ProjectID).Msg("Failed to create Firestore client")
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}

	logger.Info().Str("project_id", cfg.ProjectID).Str("collection", cfg.CollectionName).Msg("CarDocStore initialized successfully")
	return &CarDocStore{
		client:     client,
		collection: cfg.CollectionName,
		logger:     logger,
	}, nil
}

// FindByBrand streams the car documents whose brand field matches brand
// exactly. The query is issued when the returned stream's producer runs, so
// every subscription is a fresh query.
func (s *CarDocStore) FindByBrand(ctx context.Context, brand string) *stream.Stream[types.Car] {
	return stream.Generate(ctx, func(ctx context.Context, emit func(types.Car) bool) error {
		s.logger.Debug().Str("brand", brand).Msg("Querying cars by brand")

		iter := s.client.Collection(s.collection).Where("brand", "==", brand).Documents(ctx)
		defer iter.Stop()

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return fmt.Errorf("firestore query for brand %q: %w", brand, err)
			}

			var car types.Car
			if err := doc.DataTo(&car); err != nil {
				return fmt.Errorf("firestore DataTo for document %s: %w", doc.Ref.ID, err)
			}
			if !emit(car) {
				return ctx.Err()
			}
		}
	})
}

// FindDistinctBrands streams the distinct brand values across the
// collection. Firestore has no DISTINCT, so a brand-only projection query
// is de-duplicated here, preserving first-seen order.
func (s *CarDocStore) FindDistinctBrands(ctx context.Context) *stream.Stream[types.CarBrand] {
	return stream.Generate(ctx, func(ctx context.Context, emit func(types.CarBrand) bool) error {
		s.logger.Debug().Msg("Querying distinct car brands")

		iter := s.client.Collection(s.collection).Select("brand").Documents(ctx)
		defer iter.Stop()

		seen := make(map[string]struct{})
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return fmt.Errorf("firestore distinct-brands query: %w", err)
			}

			var b types.CarBrand
			if err := doc.DataTo(&b); err != nil {
				return fmt.Errorf("firestore DataTo for document %s: %w", doc.Ref.ID, err)
			}
			if _, dup := seen[b.Brand]; dup {
				continue
			}
			seen[b.Brand] = struct{}{}
			if !emit(b) {
				return ctx.Err()
			}
		}
	})
}

// Close releases the Firestore client.
func (s *CarDocStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
