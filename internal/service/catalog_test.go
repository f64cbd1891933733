package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CarCatalog/internal/domain"
	"github.com/utafrali/CarCatalog/internal/event"
	"github.com/utafrali/CarCatalog/internal/mirror"
	"github.com/utafrali/CarCatalog/internal/storage"
	apperrors "github.com/utafrali/CarCatalog/pkg/errors"
	pkgkafka "github.com/utafrali/CarCatalog/pkg/kafka"
	"github.com/utafrali/CarCatalog/pkg/logger"
)

type capturePublisher struct {
	events []*pkgkafka.Event
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, _ string, e *pkgkafka.Event) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, e)
	return nil
}

type fixture struct {
	cars     *mockCarRepository
	reviews  *mockReviewRepository
	outbox   *mockOutboxRepository
	notifier *mockNotifier
	images   *mockStorage
	pub      *capturePublisher
	svc      *CatalogService
}

// newFixture builds a service over m. Pass nil to run without a mirror.
func newFixture(t *testing.T, m Mirror) *fixture {
	t.Helper()
	f := &fixture{
		cars:     &mockCarRepository{},
		reviews:  &mockReviewRepository{},
		outbox:   &mockOutboxRepository{},
		notifier: &mockNotifier{},
		images:   &mockStorage{},
		pub:      &capturePublisher{},
	}
	f.svc = NewCatalogService(f.cars, f.reviews, f.outbox, Options{
		Mirror:        m,
		Notifier:      f.notifier,
		Images:        f.images,
		Producer:      event.NewProducer(f.pub, "", logger.Discard()),
		MaxImageBytes: 1024,
	}, logger.Discard())
	t.Cleanup(func() {
		f.cars.AssertExpectations(t)
		f.reviews.AssertExpectations(t)
		f.outbox.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
		f.images.AssertExpectations(t)
	})
	return f
}

func ptr[T any](v T) *T { return &v }

func focusInput() CarInput {
	return CarInput{Brand: "Ford", Model: "Focus", ManufactureYear: 2018, FuelType: "diesel"}
}

// expectCreate makes the repository assign id and version 1 and return an
// outbox entry with id outboxID.
func (f *fixture) expectCreate(id, outboxID int64) {
	f.cars.On("Create", mock.Anything, mock.AnythingOfType("*domain.Car")).
		Run(func(args mock.Arguments) {
			c := args.Get(1).(*domain.Car)
			c.ID, c.Version = id, 1
		}).
		Return(&domain.MirrorChange{ID: outboxID, CarID: id, Op: domain.OpCreate, Version: 1}, nil).Once()
}

func (f *fixture) expectUpdate(id, version, outboxID int64) {
	f.cars.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Car) bool { return c.ID == id })).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Car).Version = version
		}).
		Return(&domain.MirrorChange{ID: outboxID, CarID: id, Op: domain.OpUpdate, Version: version}, nil).Once()
}

// expectRowPresent lets the post-mirror check find car id still stored.
func (f *fixture) expectRowPresent(id int64) {
	f.cars.On("GetByID", mock.Anything, id).Return(&domain.Car{ID: id}, nil).Once()
}

// ---------------------------------------------------------------------------
// CreateCar
// ---------------------------------------------------------------------------

func TestCreateCar_Success(t *testing.T) {
	syncer, store := newMemorySyncer()
	f := newFixture(t, syncer)
	ctx := context.Background()

	f.expectCreate(1, 10)
	f.expectRowPresent(1)
	f.outbox.On("MarkProcessed", mock.Anything, []int64{10}).Return(nil).Once()
	f.notifier.On("NotifyCarCreated", mock.Anything, "Ford", "Focus", 2018, "diesel").Return("Ford Focus listed", nil).Once()

	res, err := f.svc.CreateCar(ctx, focusInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Car.ID)
	assert.Equal(t, "Ford Focus listed", res.Message)
	assert.Empty(t, res.Warnings)

	doc, err := store.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "diesel", doc.FuelType)
	assert.Equal(t, "", doc.ImageURL)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, event.TypeCarCreated, f.pub.events[0].EventType)
}

func TestCreateCar_ValidationError(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.CreateCar(context.Background(), CarInput{Model: strings.Repeat("x", 51), FuelType: "petrol"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.HTTPStatus(err))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "brand_name")
	assert.Contains(t, appErr.Fields, "model")
	assert.Contains(t, appErr.Fields, "manufacture_year")
	f.cars.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateCar_RepositoryError(t *testing.T) {
	f := newFixture(t, nil)
	f.cars.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

	_, err := f.svc.CreateCar(context.Background(), focusInput())
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, f.pub.events)
}

func TestCreateCar_MirrorAndNotifyFailuresAreWarnings(t *testing.T) {
	f := newFixture(t, newDownSyncer())

	f.expectCreate(2, 20)
	f.notifier.On("NotifyCarCreated", mock.Anything, "Ford", "Focus", 2018, "diesel").
		Return("", errors.New("timeout")).Once()

	res, err := f.svc.CreateCar(context.Background(), focusInput())
	require.NoError(t, err)
	assert.Equal(t, []string{WarnMirrorWrite, WarnNotify}, res.Warnings)
	assert.Empty(t, res.Message)
	f.outbox.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestCreateCar_MarkProcessedFailureIsIgnored(t *testing.T) {
	syncer, _ := newMemorySyncer()
	f := newFixture(t, syncer)

	f.expectCreate(3, 30)
	f.expectRowPresent(3)
	f.outbox.On("MarkProcessed", mock.Anything, []int64{30}).Return(errors.New("db blip")).Once()
	f.notifier.On("NotifyCarCreated", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", nil).Once()

	res, err := f.svc.CreateCar(context.Background(), focusInput())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}

func TestCreateCar_DeletedDuringMirrorWriteStaysPending(t *testing.T) {
	syncer, store := newMemorySyncer()
	f := newFixture(t, syncer)
	ctx := context.Background()

	f.expectCreate(11, 110)
	f.cars.On("GetByID", mock.Anything, int64(11)).Return(nil, apperrors.NotFound("car", int64(11))).Once()
	f.notifier.On("NotifyCarCreated", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", nil).Once()

	res, err := f.svc.CreateCar(ctx, focusInput())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	f.outbox.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)

	// The relay then reconciles the entry against the missing row.
	f.outbox.On("ListPending", mock.Anything, 100, 10).Return([]domain.MirrorChange{
		{ID: 110, CarID: 11, Op: domain.OpCreate, Version: 1},
	}, nil).Once()
	f.cars.On("GetByID", mock.Anything, int64(11)).Return(nil, apperrors.NotFound("car", int64(11))).Once()
	f.outbox.On("MarkProcessed", mock.Anything, []int64{110}).Return(nil).Once()

	relay := NewMirrorRelay(f.outbox, f.cars, syncer, RelayConfig{Interval: time.Second}, logger.Discard())
	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, store.Len())
}

func TestCreateCar_WithoutMirror(t *testing.T) {
	f := newFixture(t, nil)
	f.expectCreate(4, 40)
	f.outbox.On("MarkProcessed", mock.Anything, []int64{40}).Return(nil).Once()
	f.notifier.On("NotifyCarCreated", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", nil).Once()

	res, err := f.svc.CreateCar(context.Background(), focusInput())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}

// ---------------------------------------------------------------------------
// UpdateCar and the mirror scenario
// ---------------------------------------------------------------------------

func TestUpdateCar_MirrorFollowsFuelTypeChange(t *testing.T) {
	syncer, _ := newMemorySyncer()
	f := newFixture(t, syncer)
	ctx := context.Background()

	f.expectCreate(1, 10)
	f.expectRowPresent(1)
	f.outbox.On("MarkProcessed", mock.Anything, []int64{10}).Return(nil).Once()
	f.notifier.On("NotifyCarCreated", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", nil).Once()
	_, err := f.svc.CreateCar(ctx, focusInput())
	require.NoError(t, err)

	edit := focusInput()
	edit.FuelType = "petrol"
	f.expectUpdate(1, 2, 11)
	f.expectRowPresent(1)
	f.outbox.On("MarkProcessed", mock.Anything, []int64{11}).Return(nil).Once()
	res, err := f.svc.UpdateCar(ctx, 1, edit)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	f.cars.On("GetByID", mock.Anything, int64(1)).
		Return(&domain.Car{ID: 1, Brand: "Ford", Model: "Focus", ManufactureYear: 2018, FuelType: "petrol", Version: 2}, nil).Once()
	f.reviews.On("ListByCar", mock.Anything, int64(1)).Return([]domain.Review{
		{ID: 1, CarID: 1, Rating: ptr(5)},
		{ID: 2, CarID: 1},
		{ID: 3, CarID: 1, Rating: ptr(3)},
	}, nil).Once()

	details, err := f.svc.GetCarDetails(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "petrol", details.FuelType)
	assert.Equal(t, "Ford", details.Car.Brand)
	assert.Equal(t, domain.Stats{AvgRating: 4, ReviewCount: 3, StarsPercent: 80}, details.Stats)
	assert.Empty(t, details.Warnings)

	require.Len(t, f.pub.events, 2)
	assert.Equal(t, event.TypeCarUpdated, f.pub.events[1].EventType)
	assert.Equal(t, int64(2), f.pub.events[1].Version)
}

func TestUpdateCar_NotFound(t *testing.T) {
	syncer, store := newMemorySyncer()
	f := newFixture(t, syncer)
	f.cars.On("Update", mock.Anything, mock.Anything).Return(nil, apperrors.NotFound("car", int64(9))).Once()

	_, err := f.svc.UpdateCar(context.Background(), 9, focusInput())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestUpdateCar_MissingMirrorDocumentIsWarning(t *testing.T) {
	syncer, _ := newMemorySyncer()
	f := newFixture(t, syncer)
	f.expectUpdate(5, 3, 50)

	res, err := f.svc.UpdateCar(context.Background(), 5, focusInput())
	require.NoError(t, err)
	assert.Equal(t, []string{WarnMirrorWrite}, res.Warnings)
}

func TestUpdateCar_PublishFailureIsIgnored(t *testing.T) {
	syncer, _ := newMemorySyncer()
	f := newFixture(t, syncer)
	f.pub.err = errors.New("broker down")
	require.NoError(t, syncer.MirrorCreate(context.Background(), domain.Car{ID: 6, Version: 1}))

	f.expectUpdate(6, 2, 60)
	f.expectRowPresent(6)
	f.outbox.On("MarkProcessed", mock.Anything, []int64{60}).Return(nil).Once()

	res, err := f.svc.UpdateCar(context.Background(), 6, focusInput())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}

// ---------------------------------------------------------------------------
// DeleteCar
// ---------------------------------------------------------------------------

func TestDeleteCar_Success(t *testing.T) {
	syncer, store := newMemorySyncer()
	f := newFixture(t, syncer)
	ctx := context.Background()
	require.NoError(t, syncer.MirrorCreate(ctx, domain.Car{ID: 7, Version: 2}))

	f.cars.On("Delete", mock.Anything, int64(7)).
		Return(&domain.MirrorChange{ID: 70, CarID: 7, Op: domain.OpDelete, Version: 3}, nil).Once()
	f.outbox.On("MarkProcessed", mock.Anything, []int64{70}).Return(nil).Once()
	f.images.On("Delete", mock.Anything, "cars/7").Return(storage.ErrObjectNotFound).Once()

	res, err := f.svc.DeleteCar(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 0, store.Len())

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, event.TypeCarDeleted, f.pub.events[0].EventType)
	assert.Equal(t, int64(3), f.pub.events[0].Version)
}

func TestDeleteCar_MirrorDown(t *testing.T) {
	f := newFixture(t, newDownSyncer())
	f.cars.On("Delete", mock.Anything, int64(8)).
		Return(&domain.MirrorChange{ID: 80, CarID: 8, Op: domain.OpDelete, Version: 2}, nil).Once()
	f.images.On("Delete", mock.Anything, "cars/8").Return(errors.New("s3 down")).Once()

	res, err := f.svc.DeleteCar(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, []string{WarnMirrorWrite}, res.Warnings)
}

func TestDeleteCar_NotFound(t *testing.T) {
	f := newFixture(t, newDownSyncer())
	f.cars.On("Delete", mock.Anything, int64(9)).Return(nil, apperrors.NotFound("car", int64(9))).Once()

	_, err := f.svc.DeleteCar(context.Background(), 9)
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
}

// ---------------------------------------------------------------------------
// Details and listing
// ---------------------------------------------------------------------------

func TestGetCarDetails_NoReviews(t *testing.T) {
	f := newFixture(t, nil)
	f.cars.On("GetByID", mock.Anything, int64(1)).Return(&domain.Car{ID: 1}, nil).Once()
	f.reviews.On("ListByCar", mock.Anything, int64(1)).Return([]domain.Review{}, nil).Once()

	details, err := f.svc.GetCarDetails(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{}, details.Stats)
	assert.Empty(t, details.FuelType)
	assert.Empty(t, details.Warnings)
}

func TestGetCarDetails_MirrorDisabledUsesRow(t *testing.T) {
	f := newFixture(t, nil)
	f.cars.On("GetByID", mock.Anything, int64(3)).Return(&domain.Car{ID: 3, FuelType: "electric"}, nil).Once()
	f.reviews.On("ListByCar", mock.Anything, int64(3)).Return([]domain.Review{}, nil).Once()

	details, err := f.svc.GetCarDetails(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "electric", details.FuelType)
	assert.Empty(t, details.Warnings)
}

func TestGetCarDetails_MirrorDown(t *testing.T) {
	f := newFixture(t, newDownSyncer())
	f.cars.On("GetByID", mock.Anything, int64(1)).Return(&domain.Car{ID: 1, FuelType: "diesel"}, nil).Once()
	f.reviews.On("ListByCar", mock.Anything, int64(1)).Return([]domain.Review{}, nil).Once()

	details, err := f.svc.GetCarDetails(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, details.FuelType)
	assert.Equal(t, []string{WarnMirrorRead}, details.Warnings)
}

func TestGetCarDetails_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	f.cars.On("GetByID", mock.Anything, int64(2)).Return(nil, apperrors.NotFound("car", int64(2))).Once()

	_, err := f.svc.GetCarDetails(context.Background(), 2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListCars(t *testing.T) {
	f := newFixture(t, nil)
	rows := []domain.CarWithStats{{Car: domain.Car{ID: 1}}, {Car: domain.Car{ID: 2}}}
	f.cars.On("ListWithStats", mock.Anything).Return(rows, nil).Once()

	got, err := f.svc.ListCars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

// ---------------------------------------------------------------------------
// Reviews
// ---------------------------------------------------------------------------

func TestCreateReview_Success(t *testing.T) {
	f := newFixture(t, nil)
	f.reviews.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.CarID == 1 && r.UserName == "ann" && *r.Rating == 4
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Review).ID = 12
	}).Return(nil).Once()

	review, err := f.svc.CreateReview(context.Background(), 1, ReviewInput{UserName: "ann", Rating: ptr(4), ReviewText: "solid"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), review.ID)
}

func TestCreateReview_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    ReviewInput
		field string
	}{
		{name: "rating above scale", in: ReviewInput{UserName: "a", Rating: ptr(6), ReviewText: "t"}, field: "rating"},
		{name: "rating below scale", in: ReviewInput{UserName: "a", Rating: ptr(-1), ReviewText: "t"}, field: "rating"},
		{name: "rating missing", in: ReviewInput{UserName: "a", ReviewText: "t"}, field: "rating"},
		{name: "long text", in: ReviewInput{UserName: "a", Rating: ptr(3), ReviewText: strings.Repeat("x", 501)}, field: "review_text"},
		{name: "long name", in: ReviewInput{UserName: strings.Repeat("x", 51), Rating: ptr(3), ReviewText: "t"}, field: "user_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.svc.CreateReview(context.Background(), 1, tt.in)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestCreateReview_UnknownCar(t *testing.T) {
	f := newFixture(t, nil)
	f.reviews.On("Create", mock.Anything, mock.Anything).Return(apperrors.NotFound("car", int64(99))).Once()

	_, err := f.svc.CreateReview(context.Background(), 99, ReviewInput{UserName: "a", Rating: ptr(0), ReviewText: "t"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteReview(t *testing.T) {
	f := newFixture(t, nil)
	f.reviews.On("Delete", mock.Anything, int64(5)).Return(int64(2), nil).Once()
	f.reviews.On("Delete", mock.Anything, int64(6)).Return(int64(0), apperrors.NotFound("review", int64(6))).Once()

	carID, err := f.svc.DeleteReview(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), carID)

	_, err = f.svc.DeleteReview(context.Background(), 6)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// AttachImage
// ---------------------------------------------------------------------------

func TestAttachImage_Success(t *testing.T) {
	syncer, store := newMemorySyncer()
	f := newFixture(t, syncer)
	ctx := context.Background()
	car := domain.Car{ID: 3, Brand: "Ford", Model: "Focus", ManufactureYear: 2018, FuelType: "diesel", Version: 1}
	require.NoError(t, syncer.MirrorCreate(ctx, car))

	f.cars.On("GetByID", mock.Anything, int64(3)).Return(&car, nil).Once()
	f.images.On("Upload", mock.Anything, mock.MatchedBy(func(in *storage.UploadInput) bool {
		return in.Key == "cars/3" && in.ContentType == "image/png"
	})).Return(&storage.UploadResult{Key: "cars/3", URL: "https://img/cars/3"}, nil).Once()

	res, err := f.svc.AttachImage(ctx, 3, ImageInput{ContentType: "image/png", Size: 10, Data: strings.NewReader("0123456789")})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	doc, err := store.Get(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "https://img/cars/3", doc.ImageURL)
	assert.Equal(t, "diesel", doc.FuelType)

	f.cars.On("GetByID", mock.Anything, int64(3)).Return(&car, nil).Once()
	f.reviews.On("ListByCar", mock.Anything, int64(3)).Return([]domain.Review{}, nil).Once()
	details, err := f.svc.GetCarDetails(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "https://img/cars/3", details.ImageURL)
	assert.Equal(t, "diesel", details.FuelType)
}

func TestAttachImage_MirrorFailureIsWarning(t *testing.T) {
	f := newFixture(t, newDownSyncer())
	f.cars.On("GetByID", mock.Anything, int64(3)).Return(&domain.Car{ID: 3, Version: 1}, nil).Once()
	f.images.On("Upload", mock.Anything, mock.Anything).Return(&storage.UploadResult{Key: "cars/3", URL: "u"}, nil).Once()

	res, err := f.svc.AttachImage(context.Background(), 3, ImageInput{ContentType: "image/jpeg", Size: 1, Data: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, []string{WarnImageMirror}, res.Warnings)
}

func TestAttachImage_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		in     ImageInput
		status int
	}{
		{name: "content type", in: ImageInput{ContentType: "text/plain", Size: 1}, status: http.StatusBadRequest},
		{name: "empty", in: ImageInput{ContentType: "image/png", Size: 0}, status: http.StatusBadRequest},
		{name: "too large", in: ImageInput{ContentType: "image/png", Size: 4096}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.svc.AttachImage(context.Background(), 1, tt.in)
			assert.Equal(t, tt.status, apperrors.HTTPStatus(err))
		})
	}
}

func TestAttachImage_UploadFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.cars.On("GetByID", mock.Anything, int64(3)).Return(&domain.Car{ID: 3}, nil).Once()
	f.images.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("s3 down")).Once()

	_, err := f.svc.AttachImage(context.Background(), 3, ImageInput{ContentType: "image/png", Size: 1, Data: strings.NewReader("x")})
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
}

func TestAttachImage_StorageDisabled(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.images = nil

	_, err := f.svc.AttachImage(context.Background(), 1, ImageInput{ContentType: "image/png", Size: 1})
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
}

var _ Mirror = (*mirror.Syncer)(nil)
