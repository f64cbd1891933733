package mirror

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/utafrali/CarCatalog/internal/domain"
)

// Fields is the payload of MirrorUpdate. ImageURL is only written when set.
type Fields struct {
	Brand           string
	Model           string
	ManufactureYear int
	FuelType        string
	ImageURL        *string
	Version         int64
}

// FieldsFromCar copies a car's editable fields and version.
func FieldsFromCar(c domain.Car) Fields {
	return Fields{
		Brand:           c.Brand,
		Model:           c.Model,
		ManufactureYear: c.ManufactureYear,
		FuelType:        c.FuelType,
		Version:         c.Version,
	}
}

// Syncer applies car changes to a Store. Every call is bounded by the
// configured timeout and every failure comes back as a *StoreError.
type Syncer struct {
	store   Store
	timeout time.Duration
	logger  *slog.Logger
}

func NewSyncer(store Store, timeout time.Duration, logger *slog.Logger) *Syncer {
	return &Syncer{store: store, timeout: timeout, logger: logger}
}

func (s *Syncer) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

func (s *Syncer) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Syncer) fail(op string, carID int64, err error) error {
	return &StoreError{Op: op, CarID: carID, Err: err}
}

// MirrorCreate writes the document of a new car with an empty image URL.
// A document that already holds this version or a newer one is left as is,
// so replaying the same change is harmless.
func (s *Syncer) MirrorCreate(ctx context.Context, car domain.Car) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	err := s.store.Create(ctx, NewDocument(car))
	if errors.Is(err, ErrDocumentExists) {
		err = s.upsert(ctx, car)
	}
	if err != nil {
		return s.fail("create", car.ID, err)
	}
	return nil
}

// MirrorDelete removes the car's document. A missing document counts as
// deleted.
func (s *Syncer) MirrorDelete(ctx context.Context, carID int64) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.store.Delete(ctx, Key(carID)); err != nil && !errors.Is(err, ErrDocumentNotFound) {
		return s.fail("delete", carID, err)
	}
	return nil
}

// MirrorUpdate reads the document, overwrites its fields and writes it back
// on the condition that nobody wrote in between. Core fields from an older
// version than the stored one are ignored; the image URL always applies.
func (s *Syncer) MirrorUpdate(ctx context.Context, carID int64, f Fields) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	doc, err := s.store.Get(ctx, Key(carID))
	if err != nil {
		return s.fail("update", carID, err)
	}
	changed := false
	if f.Version >= doc.Version {
		doc.Brand, doc.Model, doc.ManufactureYear, doc.FuelType = f.Brand, f.Model, f.ManufactureYear, f.FuelType
		doc.Version = f.Version
		changed = true
	} else {
		s.logger.DebugContext(ctx, "stale mirror update ignored",
			slog.Int64("car_id", carID),
			slog.Int64("stored_version", doc.Version),
			slog.Int64("update_version", f.Version),
		)
	}
	if f.ImageURL != nil {
		doc.ImageURL = *f.ImageURL
		changed = true
	}
	if !changed {
		return nil
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return s.fail("update", carID, err)
	}
	return nil
}

// MirrorGet returns the stored document of a car.
func (s *Syncer) MirrorGet(ctx context.Context, carID int64) (Document, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	doc, err := s.store.Get(ctx, Key(carID))
	if err != nil {
		return Document{}, s.fail("get", carID, err)
	}
	return doc, nil
}

// MirrorGetFuelType returns the stored fuel type, "" when the field is empty.
func (s *Syncer) MirrorGetFuelType(ctx context.Context, carID int64) (string, error) {
	doc, err := s.MirrorGet(ctx, carID)
	if err != nil {
		return "", err
	}
	return doc.FuelType, nil
}

// Apply performs the write an outbox entry describes.
func (s *Syncer) Apply(ctx context.Context, ch domain.MirrorChange) error {
	switch ch.Op {
	case domain.OpCreate:
		return s.MirrorCreate(ctx, ch.Car)
	case domain.OpUpdate:
		return s.MirrorUpdate(ctx, ch.CarID, FieldsFromCar(ch.Car))
	case domain.OpDelete:
		return s.MirrorDelete(ctx, ch.CarID)
	default:
		return s.fail(string(ch.Op), ch.CarID, errors.New("unknown operation"))
	}
}

// Reconcile makes the document match the current relational state: car nil
// means the row is gone. Used by the relay, where the outbox entry may be
// older than the row.
func (s *Syncer) Reconcile(ctx context.Context, carID int64, car *domain.Car) error {
	if car == nil {
		return s.MirrorDelete(ctx, carID)
	}
	return s.MirrorCreate(ctx, *car)
}

// upsert brings an existing document up to car's version, keeping its image.
func (s *Syncer) upsert(ctx context.Context, car domain.Car) error {
	doc, err := s.store.Get(ctx, car.Key())
	if errors.Is(err, ErrDocumentNotFound) {
		return s.store.Create(ctx, NewDocument(car))
	}
	if err != nil {
		return err
	}
	if doc.Version >= car.Version {
		return nil
	}
	doc.Brand, doc.Model, doc.ManufactureYear, doc.FuelType = car.Brand, car.Model, car.ManufactureYear, car.FuelType
	doc.Version = car.Version
	return s.store.Replace(ctx, doc)
}
