package bridge_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfleet/carstream/pkg/bridge"
	"github.com/openfleet/carstream/pkg/stream"
	"github.com/openfleet/carstream/pkg/types"
)

// --- MockCarStore ---

type mockCarStore struct {
	mu           sync.Mutex
	cars         []types.Car
	brands       []types.CarBrand
	failWith     error // terminal fault emitted after any items
	brandQueries []string
}

func (m *mockCarStore) FindByBrand(ctx context.Context, brand string) *stream.Stream[types.Car] {
	m.mu.Lock()
	m.brandQueries = append(m.brandQueries, brand)
	m.mu.Unlock()
	return stream.Generate(ctx, func(ctx context.Context, emit func(types.Car) bool) error {
		for _, c := range m.cars {
			if !emit(c) {
				return ctx.Err()
			}
		}
		return m.failWith
	})
}

func (m *mockCarStore) FindDistinctBrands(ctx context.Context) *stream.Stream[types.CarBrand] {
	return stream.Generate(ctx, func(ctx context.Context, emit func(types.CarBrand) bool) error {
		for _, b := range m.brands {
			if !emit(b) {
				return ctx.Err()
			}
		}
		return m.failWith
	})
}

func (m *mockCarStore) queried() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.brandQueries...)
}

// --- MockMessagePublisher ---

type mockMessagePublisher struct {
	mu           sync.Mutex
	published    []types.Car
	publishError error
	stopCalled   bool
}

func (m *mockMessagePublisher) Publish(_ context.Context, car types.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishError != nil {
		return m.publishError
	}
	m.published = append(m.published, car)
	return nil
}

func (m *mockMessagePublisher) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalled = true
}

func newTestService(store bridge.CarStore, pub bridge.MessagePublisher, logBuf *bytes.Buffer) *bridge.Service {
	logger := zerolog.New(logBuf).Level(zerolog.DebugLevel)
	return bridge.NewService(store, pub, logger)
}

// --- Publish path ---

func TestPushData_HandsOffExactlyOnce(t *testing.T) {
	pub := &mockMessagePublisher{}
	svc := newTestService(&mockCarStore{}, pub, &bytes.Buffer{})

	car := types.Car{ID: 1, Brand: "Toyota", Model: "Corolla"}
	err := svc.PushData(context.Background(), car)

	require.NoError(t, err)
	require.Len(t, pub.published, 1)
	assert.Equal(t, car, pub.published[0])
}

func TestPushData_BrokerFaultPropagatesUnchanged(t *testing.T) {
	brokerErr := errors.New("kafka: broker unreachable")
	pub := &mockMessagePublisher{publishError: brokerErr}
	svc := newTestService(&mockCarStore{}, pub, &bytes.Buffer{})

	err := svc.PushData(context.Background(), types.Car{Brand: "Honda"})

	assert.ErrorIs(t, err, brokerErr, "write-path faults must not be translated")
	assert.NotErrorIs(t, err, bridge.ErrDataNotFound)
	assert.Empty(t, pub.published)
}

// --- Read path: by brand ---

func TestGetCarsByBrand_ReturnsStoreRecordsInOrder(t *testing.T) {
	store := &mockCarStore{cars: []types.Car{
		{ID: 1, Brand: "Toyota", Model: "Corolla"},
		{ID: 2, Brand: "Toyota", Model: "Camry"},
		{ID: 3, Brand: "Toyota", Model: "Yaris"},
	}}
	svc := newTestService(store, &mockMessagePublisher{}, &bytes.Buffer{})

	ctx := context.Background()
	got, err := stream.Collect(ctx, svc.GetCarsByBrand(ctx, "Toyota"))

	require.NoError(t, err)
	assert.Equal(t, store.cars, got, "records must pass through unmodified and in store order")
	assert.Equal(t, []string{"Toyota"}, store.queried())
}

func TestGetCarsByBrand_StoreFaultBecomesDataNotFound(t *testing.T) {
	storeErr := errors.New("firestore: rpc error: unavailable")
	store := &mockCarStore{failWith: storeErr}
	var logBuf bytes.Buffer
	svc := newTestService(store, &mockMessagePublisher{}, &logBuf)

	ctx := context.Background()
	got, err := stream.Collect(ctx, svc.GetCarsByBrand(ctx, "Honda"))

	assert.Empty(t, got)
	assert.ErrorIs(t, err, bridge.ErrDataNotFound)
	assert.NotContains(t, err.Error(), "firestore", "raw store fault must not be surfaced")
	assert.Contains(t, logBuf.String(), "unavailable", "raw store fault must be logged")
}

func TestGetCarsByBrand_FaultAfterPartialResults(t *testing.T) {
	storeErr := errors.New("connection reset mid-stream")
	store := &mockCarStore{
		cars:     []types.Car{{ID: 1, Brand: "Honda", Model: "Civic"}},
		failWith: storeErr,
	}
	var logBuf bytes.Buffer
	svc := newTestService(store, &mockMessagePublisher{}, &logBuf)

	ctx := context.Background()
	got, err := stream.Collect(ctx, svc.GetCarsByBrand(ctx, "Honda"))

	// Items delivered before the fault are observed, then the normalized fault.
	assert.Equal(t, store.cars, got)
	assert.ErrorIs(t, err, bridge.ErrDataNotFound)
	assert.NotContains(t, logBuf.String(), "Received car data successfully",
		"completion log must not fire when the stream faults")
}

func TestGetCarsByBrand_EmptyResultBecomesDataNotFound(t *testing.T) {
	store := &mockCarStore{} // successful, zero rows
	var logBuf bytes.Buffer
	svc := newTestService(store, &mockMessagePublisher{}, &logBuf)

	ctx := context.Background()
	got, err := stream.Collect(ctx, svc.GetCarsByBrand(ctx, "Zzz"))

	assert.Empty(t, got)
	assert.ErrorIs(t, err, bridge.ErrDataNotFound)
	// The empty guard is the outermost stage: the clean completion is logged
	// before it is reclassified.
	assert.Contains(t, logBuf.String(), "Received car data successfully")
}

func TestGetCarsByBrand_CompletionLoggedOnlyOnCleanFinish(t *testing.T) {
	store := &mockCarStore{cars: []types.Car{{ID: 9, Brand: "Kia"}}}
	var logBuf bytes.Buffer
	svc := newTestService(store, &mockMessagePublisher{}, &logBuf)

	ctx := context.Background()
	_, err := stream.Collect(ctx, svc.GetCarsByBrand(ctx, "Kia"))

	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(logBuf.String(), "Received car data successfully"))
}

func TestGetCarsByBrand_EachCallReissuesQuery(t *testing.T) {
	store := &mockCarStore{cars: []types.Car{{ID: 1, Brand: "Ford"}}}
	svc := newTestService(store, &mockMessagePublisher{}, &bytes.Buffer{})

	ctx := context.Background()
	_, err := stream.Collect(ctx, svc.GetCarsByBrand(ctx, "Ford"))
	require.NoError(t, err)
	_, err = stream.Collect(ctx, svc.GetCarsByBrand(ctx, "Ford"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Ford", "Ford"}, store.queried())
}

// --- Read path: distinct brands ---

func TestGetAllBrands_ReturnsDistinctBrands(t *testing.T) {
	store := &mockCarStore{brands: []types.CarBrand{
		{Brand: "Toyota"}, {Brand: "Honda"}, {Brand: "Ford"},
	}}
	svc := newTestService(store, &mockMessagePublisher{}, &bytes.Buffer{})

	ctx := context.Background()
	got, err := stream.Collect(ctx, svc.GetAllBrands(ctx))

	require.NoError(t, err)
	assert.Equal(t, store.brands, got)
}

func TestGetAllBrands_StoreFaultBecomesDataNotFound(t *testing.T) {
	store := &mockCarStore{failWith: errors.New("store down")}
	var logBuf bytes.Buffer
	svc := newTestService(store, &mockMessagePublisher{}, &logBuf)

	ctx := context.Background()
	_, err := stream.Collect(ctx, svc.GetAllBrands(ctx))

	assert.ErrorIs(t, err, bridge.ErrDataNotFound)
	assert.Contains(t, logBuf.String(), "store down")
}

func TestGetAllBrands_EmptyResultBecomesDataNotFound(t *testing.T) {
	svc := newTestService(&mockCarStore{}, &mockMessagePublisher{}, &bytes.Buffer{})

	ctx := context.Background()
	got, err := stream.Collect(ctx, svc.GetAllBrands(ctx))

	assert.Empty(t, got)
	assert.ErrorIs(t, err, bridge.ErrDataNotFound)
}

// --- Cancellation ---

func TestGetCarsByBrand_CancellationReachesStore(t *testing.T) {
	// A store that produces indefinitely; the consumer walks away after two
	// items and the producer must observe the cancellation.
	producerDone := make(chan error, 1)
	store := &endlessCarStore{producerDone: producerDone}
	svc := newTestService(store, &mockMessagePublisher{}, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	s := svc.GetCarsByBrand(ctx, "Toyota")
	<-s.Items()
	<-s.Items()
	cancel()

	err := <-producerDone
	assert.ErrorIs(t, err, context.Canceled)
}

type endlessCarStore struct {
	producerDone chan error
}

func (e *endlessCarStore) FindByBrand(ctx context.Context, brand string) *stream.Stream[types.Car] {
	return stream.Generate(ctx, func(ctx context.Context, emit func(types.Car) bool) error {
		var id int64
		for {
			id++
			if !emit(types.Car{ID: id, Brand: brand}) {
				e.producerDone <- ctx.Err()
				return ctx.Err()
			}
		}
	})
}

func (e *endlessCarStore) FindDistinctBrands(ctx context.Context) *stream.Stream[types.CarBrand] {
	return stream.FromSlice[types.CarBrand](ctx, nil)
}
