package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/utafrali/CarCatalog/internal/domain"
	"github.com/utafrali/CarCatalog/internal/event"
	"github.com/utafrali/CarCatalog/internal/mirror"
	"github.com/utafrali/CarCatalog/internal/repository"
	"github.com/utafrali/CarCatalog/internal/storage"
	apperrors "github.com/utafrali/CarCatalog/pkg/errors"
	"github.com/utafrali/CarCatalog/pkg/validator"
)

// Messages shown to the user when a secondary system fails after the
// relational write went through.
const (
	WarnMirrorWrite = "The car was saved, but the document store could not be updated. It will be retried in the background."
	WarnMirrorRead  = "The document store is unavailable, so the mirrored fuel type and image cannot be shown."
	WarnNotify      = "The car was saved, but the notification service could not be reached."
	WarnImageMirror = "The image was uploaded, but the document store could not be updated."
)

// Mirror is the document store copy of the cars. *mirror.Syncer implements it.
type Mirror interface {
	MirrorCreate(ctx context.Context, car domain.Car) error
	MirrorUpdate(ctx context.Context, carID int64, f mirror.Fields) error
	MirrorDelete(ctx context.Context, carID int64) error
	MirrorGet(ctx context.Context, carID int64) (mirror.Document, error)
}

type Notifier interface {
	NotifyCarCreated(ctx context.Context, brand, model string, year int, fuelType string) (string, error)
}

// CarInput holds the editable fields of a car as submitted.
type CarInput struct {
	Brand           string `form:"brand_name" json:"brand_name" validate:"required,max=50"`
	Model           string `form:"model" json:"model" validate:"required,max=50"`
	ManufactureYear int    `form:"manufacture_year" json:"manufacture_year" validate:"required,min=1886,max=2100"`
	FuelType        string `form:"fuel_type" json:"fuel_type" validate:"required,max=50"`
}

type ReviewInput struct {
	UserName   string `form:"user_name" validate:"required,max=50"`
	Rating     *int   `form:"rating" validate:"required,min=0,max=5"`
	ReviewText string `form:"review_text" validate:"required,max=500"`
}

type ImageInput struct {
	ContentType string
	Size        int64
	Data        io.Reader
}

// Result carries the non-fatal problems of a write that succeeded.
type Result struct {
	Warnings []string
}

func (r *Result) warn(msg string) { r.Warnings = append(r.Warnings, msg) }

type CreateCarResult struct {
	Result
	Car     *domain.Car
	Message string
}

// CatalogService implements the car and review use cases.
type CatalogService struct {
	cars     repository.CarRepository
	reviews  repository.ReviewRepository
	outbox   repository.OutboxRepository
	mirror   Mirror
	notifier Notifier
	images   storage.Storage
	producer *event.Producer
	maxImage int64
	logger   *slog.Logger
}

// Options holds the optional collaborators. A nil Mirror, Notifier or
// Images disables that feature.
type Options struct {
	Mirror        Mirror
	Notifier      Notifier
	Images        storage.Storage
	Producer      *event.Producer
	MaxImageBytes int64
}

func NewCatalogService(
	cars repository.CarRepository,
	reviews repository.ReviewRepository,
	outbox repository.OutboxRepository,
	opts Options,
	logger *slog.Logger,
) *CatalogService {
	if opts.Producer == nil {
		opts.Producer = event.NewProducer(nil, "", logger)
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = storage.MaxImageSize
	}
	return &CatalogService{
		cars:     cars,
		reviews:  reviews,
		outbox:   outbox,
		mirror:   opts.Mirror,
		notifier: opts.Notifier,
		images:   opts.Images,
		producer: opts.Producer,
		maxImage: opts.MaxImageBytes,
		logger:   logger,
	}
}

func (s *CatalogService) ListCars(ctx context.Context) ([]domain.CarWithStats, error) {
	return s.cars.ListWithStats(ctx)
}

// GetCarDetails loads a car with its reviews and the fuel type the mirror
// holds for it. An unreachable mirror only adds a warning.
func (s *CatalogService) GetCarDetails(ctx context.Context, id int64) (*domain.CarDetails, error) {
	car, err := s.cars.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByCar(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &domain.CarDetails{
		Car:     *car,
		Reviews: reviews,
		Stats:   domain.ComputeStats(reviews),
	}
	if s.mirror == nil {
		details.FuelType = car.FuelType
	} else {
		doc, err := s.mirror.MirrorGet(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "mirror read failed", slog.Int64("car_id", id), slog.String("error", err.Error()))
			details.Warnings = append(details.Warnings, WarnMirrorRead)
		}
		details.FuelType = doc.FuelType
		details.ImageURL = doc.ImageURL
	}
	return details, nil
}

// CreateCar stores the car, mirrors it and notifies the external endpoint.
// Only the relational insert can fail the call.
func (s *CatalogService) CreateCar(ctx context.Context, in CarInput) (*CreateCarResult, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	car := &domain.Car{Brand: in.Brand, Model: in.Model, ManufactureYear: in.ManufactureYear, FuelType: in.FuelType}
	change, err := s.cars.Create(ctx, car)
	if err != nil {
		return nil, err
	}

	res := &CreateCarResult{Car: car}
	s.logger.InfoContext(ctx, "car created",
		slog.Int64("car_id", car.ID),
		slog.String("brand", car.Brand),
		slog.String("model", car.Model),
	)

	var mirrorErr error
	if s.mirror != nil {
		mirrorErr = s.mirror.MirrorCreate(ctx, *car)
	}
	s.settle(ctx, change, mirrorErr, &res.Result)
	s.publish(ctx, event.TypeCarCreated, s.producer.PublishCarCreated(ctx, car))

	if s.notifier != nil {
		msg, err := s.notifier.NotifyCarCreated(ctx, car.Brand, car.Model, car.ManufactureYear, car.FuelType)
		if err != nil {
			s.logger.WarnContext(ctx, "car creation notification failed",
				slog.Int64("car_id", car.ID),
				slog.String("error", err.Error()),
			)
			res.warn(WarnNotify)
		}
		res.Message = msg
	}
	return res, nil
}

// UpdateCar overwrites all four fields of car id.
func (s *CatalogService) UpdateCar(ctx context.Context, id int64, in CarInput) (*Result, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	car := &domain.Car{ID: id, Brand: in.Brand, Model: in.Model, ManufactureYear: in.ManufactureYear, FuelType: in.FuelType}
	change, err := s.cars.Update(ctx, car)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	s.logger.InfoContext(ctx, "car updated", slog.Int64("car_id", id), slog.Int64("version", car.Version))

	var mirrorErr error
	if s.mirror != nil {
		mirrorErr = s.mirror.MirrorUpdate(ctx, id, mirror.FieldsFromCar(*car))
	}
	s.settle(ctx, change, mirrorErr, res)
	s.publish(ctx, event.TypeCarUpdated, s.producer.PublishCarUpdated(ctx, car))
	return res, nil
}

// DeleteCar removes the car with its reviews, then its mirror document and
// image.
func (s *CatalogService) DeleteCar(ctx context.Context, id int64) (*Result, error) {
	change, err := s.cars.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	s.logger.InfoContext(ctx, "car deleted", slog.Int64("car_id", id))

	var mirrorErr error
	if s.mirror != nil {
		mirrorErr = s.mirror.MirrorDelete(ctx, id)
	}
	s.settle(ctx, change, mirrorErr, res)
	s.publish(ctx, event.TypeCarDeleted, s.producer.PublishCarDeleted(ctx, id, change.Version))

	if s.images != nil {
		err := s.images.Delete(ctx, storage.CarImageKey(id))
		if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.WarnContext(ctx, "car image delete failed", slog.Int64("car_id", id), slog.String("error", err.Error()))
		}
	}
	return res, nil
}

func (s *CatalogService) CreateReview(ctx context.Context, carID int64, in ReviewInput) (*domain.Review, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	review := &domain.Review{CarID: carID, UserName: in.UserName, Rating: in.Rating, ReviewText: in.ReviewText}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review created", slog.Int64("review_id", review.ID), slog.Int64("car_id", carID))
	return review, nil
}

// DeleteReview removes a review and returns the id of its car.
func (s *CatalogService) DeleteReview(ctx context.Context, id int64) (int64, error) {
	carID, err := s.reviews.Delete(ctx, id)
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "review deleted", slog.Int64("review_id", id), slog.Int64("car_id", carID))
	return carID, nil
}

// AttachImage uploads the car's image and records its URL in the mirror.
func (s *CatalogService) AttachImage(ctx context.Context, carID int64, in ImageInput) (*Result, error) {
	if s.images == nil {
		return nil, apperrors.Unavailable("image storage", errors.New("no storage backend configured"))
	}
	if !storage.AllowedContentTypes[in.ContentType] {
		return nil, apperrors.InvalidInput(fmt.Sprintf("content type %q is not allowed", in.ContentType))
	}
	if in.Size <= 0 {
		return nil, apperrors.InvalidInput("image must not be empty")
	}
	if in.Size > s.maxImage {
		return nil, apperrors.InvalidInput(fmt.Sprintf("image size %d exceeds the limit of %d bytes", in.Size, s.maxImage))
	}

	car, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		return nil, err
	}

	up, err := s.images.Upload(ctx, &storage.UploadInput{
		Key:         storage.CarImageKey(carID),
		ContentType: in.ContentType,
		Size:        in.Size,
		Data:        in.Data,
	})
	if err != nil {
		return nil, apperrors.Unavailable("image storage", err)
	}

	res := &Result{}
	s.logger.InfoContext(ctx, "car image uploaded", slog.Int64("car_id", carID), slog.String("key", up.Key))

	if s.mirror != nil {
		f := mirror.FieldsFromCar(*car)
		f.ImageURL = &up.URL
		if err := s.mirror.MirrorUpdate(ctx, carID, f); err != nil {
			s.logger.WarnContext(ctx, "mirror image update failed", slog.Int64("car_id", carID), slog.String("error", err.Error()))
			res.warn(WarnImageMirror)
		}
	}
	return res, nil
}

// settle closes the outbox entry of a change the mirror accepted. On a mirror
// failure the entry stays pending for the relay.
func (s *CatalogService) settle(ctx context.Context, change *domain.MirrorChange, mirrorErr error, res *Result) {
	if mirrorErr != nil {
		s.logger.WarnContext(ctx, "mirror write failed, left for relay",
			slog.Int64("car_id", change.CarID),
			slog.String("op", string(change.Op)),
			slog.String("error", mirrorErr.Error()),
		)
		res.warn(WarnMirrorWrite)
		return
	}
	// A delete committed meanwhile may have cleared the mirror before this
	// write landed. Only the relay, which reads the current row, may close
	// the entry then.
	if s.mirror != nil && change.Op != domain.OpDelete {
		if _, err := s.cars.GetByID(ctx, change.CarID); err != nil {
			s.logger.WarnContext(ctx, "car changed during mirror write, left for relay",
				slog.Int64("car_id", change.CarID),
				slog.String("op", string(change.Op)),
				slog.String("error", err.Error()),
			)
			return
		}
	}
	if err := s.outbox.MarkProcessed(ctx, change.ID); err != nil {
		// The relay will replay it; replays are idempotent.
		s.logger.WarnContext(ctx, "outbox entry not marked processed",
			slog.Int64("outbox_id", change.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CatalogService) publish(ctx context.Context, eventType string, err error) {
	if err != nil {
		s.logger.WarnContext(ctx, "car event not published",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
