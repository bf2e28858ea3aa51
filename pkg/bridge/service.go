// Package bridge is the data-plane seam between the vehicle producer, the
// message broker and the document store. Writes are handed off to the
// broker client; reads are streamed from the store client through a fixed
// three-stage pipeline that normalizes every store-side failure mode into a
// single data-not-found fault.
package bridge

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/openfleet/carstream/pkg/stream"
	"github.com/openfleet/carstream/pkg/types"
)

// ErrDataNotFound is the single fault surfaced to read-path callers. Both a
// store-side failure and a genuinely empty result map to it; the underlying
// detail is logged, never returned. Callers therefore cannot distinguish
// "brand does not exist" from "store errored" — a deliberate choice kept
// for compatibility with the upstream contract.
var ErrDataNotFound = errors.New("car data not found")

// CarStore is the document-store collaborator. Both operations return cold
// streams: the query is issued when the stream's producer runs, and may
// fail at any point, including after partial results.
type CarStore interface {
	FindByBrand(ctx context.Context, brand string) *stream.Stream[types.Car]
	FindDistinctBrands(ctx context.Context) *stream.Stream[types.CarBrand]
}

// MessagePublisher is the broker collaborator. Publish is a handoff, not a
// delivery guarantee: a nil return means the broker client accepted the
// message, nothing more.
type MessagePublisher interface {
	Publish(ctx context.Context, car types.Car) error
	Stop()
}

// Service is the bridge itself. It is stateless per call; the two backend
// handles are long-lived collaborators owned by the surrounding process and
// injected at construction.
type Service struct {
	store     CarStore
	publisher MessagePublisher
	logger    zerolog.Logger
}

// NewService creates the bridge around its two backend handles.
func NewService(store CarStore, publisher MessagePublisher, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger.With().Str("component", "bridge").Logger(),
	}
}

// PushData hands one car reading to the broker client for asynchronous
// delivery. Exactly one send attempt is made; no buffering, batching or
// retry. A broker fault during handoff propagates to the caller unchanged —
// the write path never hides broker problems.
func (s *Service) PushData(ctx context.Context, car types.Car) error {
	if err := s.publisher.Publish(ctx, car); err != nil {
		s.logger.Error().Err(err).Str("brand", car.Brand).Msg("Broker handoff failed")
		return err
	}
	return nil
}

// GetCarsByBrand streams the cars matching brand from the store. The brand
// is passed through verbatim; match semantics belong to the store. Each
// call re-issues the query, so the returned stream is a fresh subscription.
//
// The pipeline applies three stages in fixed order: error mapping closest
// to the source, then completion logging, then the empty guard — so a fault
// never reaches the empty guard, and the guard only ever sees a genuinely
// successful zero-element completion.
func (s *Service) GetCarsByBrand(ctx context.Context, brand string) *stream.Stream[types.Car] {
	cars := s.store.FindByBrand(ctx, brand)

	cars = stream.OnErrorResume(ctx, cars, func(err error) error {
		s.logger.Error().Err(err).Str("brand", brand).Msg("Error while retrieving car data from store")
		return ErrDataNotFound
	})
	cars = stream.DoOnComplete(ctx, cars, func() {
		s.logger.Info().Str("brand", brand).Msg("Received car data successfully")
	})
	return stream.SwitchIfEmptyError(ctx, cars, func() error {
		return ErrDataNotFound
	})
}

// GetAllBrands streams the distinct brand values held in the store, through
// the same three-stage pipeline as GetCarsByBrand. Brands seen on the way
// through are traced at debug level as a diagnostic only.
func (s *Service) GetAllBrands(ctx context.Context) *stream.Stream[types.CarBrand] {
	brands := s.store.FindDistinctBrands(ctx)

	brands = stream.OnErrorResume(ctx, brands, func(err error) error {
		s.logger.Error().Err(err).Msg("Error while retrieving brand data from store")
		return ErrDataNotFound
	})
	brands = stream.DoOnNext(ctx, brands, func(b types.CarBrand) {
		s.logger.Debug().Str("brand", b.Brand).Msg("Distinct brand")
	})
	brands = stream.DoOnComplete(ctx, brands, func() {
		s.logger.Info().Msg("Brand data processing completed")
	})
	return stream.SwitchIfEmptyError(ctx, brands, func() error {
		return ErrDataNotFound
	})
}
