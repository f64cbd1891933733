package service

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/CarCatalog/internal/domain"
	"github.com/utafrali/CarCatalog/internal/mirror"
	"github.com/utafrali/CarCatalog/internal/mirror/memory"
	"github.com/utafrali/CarCatalog/internal/storage"
	"github.com/utafrali/CarCatalog/pkg/logger"
)

// --- Mock repositories ---

type mockCarRepository struct {
	mock.Mock
}

func (m *mockCarRepository) ListWithStats(ctx context.Context) ([]domain.CarWithStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CarWithStats), args.Error(1)
}

func (m *mockCarRepository) GetByID(ctx context.Context, id int64) (*domain.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Car), args.Error(1)
}

func (m *mockCarRepository) Create(ctx context.Context, car *domain.Car) (*domain.MirrorChange, error) {
	args := m.Called(ctx, car)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MirrorChange), args.Error(1)
}

func (m *mockCarRepository) Update(ctx context.Context, car *domain.Car) (*domain.MirrorChange, error) {
	args := m.Called(ctx, car)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MirrorChange), args.Error(1)
}

func (m *mockCarRepository) Delete(ctx context.Context, id int64) (*domain.MirrorChange, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MirrorChange), args.Error(1)
}

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByCar(ctx context.Context, carID int64) ([]domain.Review, error) {
	args := m.Called(ctx, carID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type mockOutboxRepository struct {
	mock.Mock
}

func (m *mockOutboxRepository) ListPending(ctx context.Context, limit, maxAttempts int) ([]domain.MirrorChange, error) {
	args := m.Called(ctx, limit, maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MirrorChange), args.Error(1)
}

func (m *mockOutboxRepository) MarkProcessed(ctx context.Context, ids ...int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *mockOutboxRepository) MarkFailed(ctx context.Context, id int64, cause string) error {
	args := m.Called(ctx, id, cause)
	return args.Error(0)
}

// --- Mock collaborators ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyCarCreated(ctx context.Context, brand, model string, year int, fuelType string) (string, error) {
	args := m.Called(ctx, brand, model, year, fuelType)
	return args.String(0), args.Error(1)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockStorage) GetURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// --- Mirror stores ---

var errStoreDown = errors.New("connection refused")

// downStore fails every call as an unreachable document store would.
type downStore struct{}

func (downStore) Create(context.Context, *mirror.Document) error { return errStoreDown }
func (downStore) Get(context.Context, string) (*mirror.Document, error) {
	return nil, errStoreDown
}
func (downStore) Replace(context.Context, *mirror.Document) error { return errStoreDown }
func (downStore) Delete(context.Context, string) error            { return errStoreDown }
func (downStore) Ping(context.Context) error                      { return errStoreDown }

func newMemorySyncer() (*mirror.Syncer, *memory.Store) {
	store := memory.NewStore()
	return mirror.NewSyncer(store, time.Second, logger.Discard()), store
}

func newDownSyncer() *mirror.Syncer {
	return mirror.NewSyncer(downStore{}, time.Second, logger.Discard())
}
