package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/CarCatalog/internal/domain"
	pkgkafka "github.com/utafrali/CarCatalog/pkg/kafka"
	"github.com/utafrali/CarCatalog/pkg/logger"
)

// Event types for car changes.
const (
	TypeCarCreated = "car.created"
	TypeCarUpdated = "car.updated"
	TypeCarDeleted = "car.deleted"
)

// DefaultTopic receives every car event unless configured otherwise.
const DefaultTopic = "catalog.cars"

const (
	AggregateTypeCar = "car"
	SourceCatalog    = "car-catalog"
)

// CarData is the payload of car.created and car.updated.
type CarData struct {
	ID              int64  `json:"id"`
	Brand           string `json:"brand"`
	Model           string `json:"model"`
	ManufactureYear int    `json:"manufacture_year"`
	FuelType        string `json:"fuel_type"`
}

// CarDeletedData is the payload of car.deleted.
type CarDeletedData struct {
	ID int64 `json:"id"`
}

// Publisher is satisfied by *pkgkafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, e *pkgkafka.Event) error
}

// Producer publishes car events. A Producer without a Publisher drops
// every event.
type Producer struct {
	pub    Publisher
	topic  string
	logger *slog.Logger
}

func NewProducer(pub Publisher, topic string, logger *slog.Logger) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Producer{pub: pub, topic: topic, logger: logger}
}

func (p *Producer) PublishCarCreated(ctx context.Context, car *domain.Car) error {
	return p.publish(ctx, TypeCarCreated, car.ID, car.Version, carData(car))
}

func (p *Producer) PublishCarUpdated(ctx context.Context, car *domain.Car) error {
	return p.publish(ctx, TypeCarUpdated, car.ID, car.Version, carData(car))
}

// PublishCarDeleted takes the version of the deletion, one past the last
// stored version of the car.
func (p *Producer) PublishCarDeleted(ctx context.Context, carID, version int64) error {
	return p.publish(ctx, TypeCarDeleted, carID, version, CarDeletedData{ID: carID})
}

func (p *Producer) publish(ctx context.Context, eventType string, carID, version int64, data any) error {
	if p.pub == nil {
		return nil
	}

	id := domain.Car{ID: carID}
	e, err := pkgkafka.NewEvent(eventType, AggregateTypeCar, id.Key(), version, SourceCatalog, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	e.CorrelationID = logger.CorrelationID(ctx)

	if err := p.pub.Publish(ctx, p.topic, e); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published car event",
		slog.String("event_type", eventType),
		slog.Int64("car_id", carID),
		slog.Int64("version", version),
	)
	return nil
}

func carData(c *domain.Car) CarData {
	return CarData{
		ID:              c.ID,
		Brand:           c.Brand,
		Model:           c.Model,
		ManufactureYear: c.ManufactureYear,
		FuelType:        c.FuelType,
	}
}
