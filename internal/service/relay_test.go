package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CarCatalog/internal/domain"
	apperrors "github.com/utafrali/CarCatalog/pkg/errors"
	"github.com/utafrali/CarCatalog/pkg/logger"
)

func newRelay(t *testing.T, m Reconciler) (*MirrorRelay, *mockOutboxRepository, *mockCarRepository) {
	t.Helper()
	outbox := &mockOutboxRepository{}
	cars := &mockCarRepository{}
	t.Cleanup(func() {
		outbox.AssertExpectations(t)
		cars.AssertExpectations(t)
	})
	relay := NewMirrorRelay(outbox, cars, m, RelayConfig{Interval: time.Hour, BatchSize: 50, MaxAttempts: 5}, logger.Discard())
	return relay, outbox, cars
}

func TestRelay_SyncsCurrentState(t *testing.T) {
	syncer, store := newMemorySyncer()
	relay, outbox, cars := newRelay(t, syncer)
	ctx := context.Background()

	// Car 1 was created then edited; only its current row matters.
	outbox.On("ListPending", mock.Anything, 50, 5).Return([]domain.MirrorChange{
		{ID: 1, CarID: 1, Op: domain.OpCreate, Version: 1, Car: domain.Car{ID: 1, FuelType: "diesel", Version: 1}},
		{ID: 2, CarID: 2, Op: domain.OpCreate, Version: 1, Car: domain.Car{ID: 2, Version: 1}},
		{ID: 3, CarID: 1, Op: domain.OpUpdate, Version: 2, Car: domain.Car{ID: 1, FuelType: "petrol", Version: 2}},
	}, nil).Once()
	cars.On("GetByID", mock.Anything, int64(1)).Return(&domain.Car{ID: 1, FuelType: "petrol", Version: 2}, nil).Once()
	cars.On("GetByID", mock.Anything, int64(2)).Return(nil, apperrors.NotFound("car", int64(2))).Once()
	outbox.On("MarkProcessed", mock.Anything, []int64{1, 3}).Return(nil).Once()
	outbox.On("MarkProcessed", mock.Anything, []int64{2}).Return(nil).Once()

	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	fuel, err := syncer.MirrorGetFuelType(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "petrol", fuel)
	assert.Equal(t, 1, store.Len())
}

func TestRelay_DeletedCarRemovesDocument(t *testing.T) {
	syncer, store := newMemorySyncer()
	relay, outbox, cars := newRelay(t, syncer)
	ctx := context.Background()
	require.NoError(t, syncer.MirrorCreate(ctx, domain.Car{ID: 4, Version: 1}))

	// A stale create replayed after the delete must not bring the car back.
	outbox.On("ListPending", mock.Anything, 50, 5).Return([]domain.MirrorChange{
		{ID: 7, CarID: 4, Op: domain.OpCreate, Version: 1, Car: domain.Car{ID: 4, Version: 1}},
		{ID: 8, CarID: 4, Op: domain.OpDelete, Version: 2},
	}, nil).Once()
	cars.On("GetByID", mock.Anything, int64(4)).Return(nil, apperrors.NotFound("car", int64(4))).Once()
	outbox.On("MarkProcessed", mock.Anything, []int64{7, 8}).Return(nil).Once()

	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, store.Len())
}

func TestRelay_ReplayIsIdempotent(t *testing.T) {
	syncer, store := newMemorySyncer()
	relay, outbox, cars := newRelay(t, syncer)
	ctx := context.Background()
	url := "https://img/cars/5"

	car := domain.Car{ID: 5, Brand: "Ford", FuelType: "diesel", Version: 1}
	require.NoError(t, syncer.MirrorCreate(ctx, car))
	doc, err := store.Get(ctx, "5")
	require.NoError(t, err)
	doc.ImageURL = url
	require.NoError(t, store.Replace(ctx, doc))

	outbox.On("ListPending", mock.Anything, 50, 5).Return([]domain.MirrorChange{
		{ID: 9, CarID: 5, Op: domain.OpCreate, Version: 1, Car: car},
	}, nil).Twice()
	cars.On("GetByID", mock.Anything, int64(5)).Return(&car, nil).Twice()
	outbox.On("MarkProcessed", mock.Anything, []int64{9}).Return(nil).Twice()

	for i := 0; i < 2; i++ {
		_, err := relay.RunOnce(ctx)
		require.NoError(t, err)
	}

	got, err := store.Get(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, url, got.ImageURL)
	assert.Equal(t, "diesel", got.FuelType)
}

func TestRelay_MirrorFailureRecordsAttempt(t *testing.T) {
	relay, outbox, cars := newRelay(t, newDownSyncer())

	outbox.On("ListPending", mock.Anything, 50, 5).Return([]domain.MirrorChange{
		{ID: 1, CarID: 1, Op: domain.OpCreate, Version: 1},
		{ID: 2, CarID: 1, Op: domain.OpUpdate, Version: 2},
	}, nil).Once()
	cars.On("GetByID", mock.Anything, int64(1)).Return(&domain.Car{ID: 1, Version: 2}, nil).Once()
	outbox.On("MarkFailed", mock.Anything, int64(1), mock.MatchedBy(func(cause string) bool {
		return cause != ""
	})).Return(nil).Once()
	outbox.On("MarkFailed", mock.Anything, int64(2), mock.Anything).Return(errors.New("db blip")).Once()

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelay_CarLoadErrorSkipsCar(t *testing.T) {
	syncer, _ := newMemorySyncer()
	relay, outbox, cars := newRelay(t, syncer)

	outbox.On("ListPending", mock.Anything, 50, 5).Return([]domain.MirrorChange{
		{ID: 1, CarID: 1, Op: domain.OpCreate, Version: 1},
	}, nil).Once()
	cars.On("GetByID", mock.Anything, int64(1)).Return(nil, errors.New("db down")).Once()

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	outbox.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestRelay_ListError(t *testing.T) {
	syncer, _ := newMemorySyncer()
	relay, outbox, _ := newRelay(t, syncer)
	outbox.On("ListPending", mock.Anything, 50, 5).Return(nil, errors.New("db down")).Once()

	_, err := relay.RunOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	syncer, _ := newMemorySyncer()
	outbox := &mockOutboxRepository{}
	outbox.On("ListPending", mock.Anything, 100, 10).Return([]domain.MirrorChange{}, nil).Maybe()
	relay := NewMirrorRelay(outbox, &mockCarRepository{}, syncer, RelayConfig{Interval: 5 * time.Millisecond}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}

func TestRelay_DisabledReturnsImmediately(t *testing.T) {
	syncer, _ := newMemorySyncer()
	relay := NewMirrorRelay(&mockOutboxRepository{}, &mockCarRepository{}, syncer, RelayConfig{}, logger.Discard())

	done := make(chan struct{})
	go func() {
		relay.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled relay kept running")
	}
}
