// Package mirror keeps a best-effort copy of every car in a secondary
// document store, keyed by the car id string.
package mirror

import (
	"context"
	"errors"
	"strconv"

	"github.com/utafrali/CarCatalog/internal/domain"
)

var (
	ErrDocumentNotFound = errors.New("mirror document not found")
	ErrDocumentExists   = errors.New("mirror document already exists")
	ErrVersionConflict  = errors.New("mirror document changed concurrently")
)

// Document is the stored shape of a car. Version is the relational version
// the core fields were copied from.
type Document struct {
	ID              string   `json:"id"`
	Brand           string   `json:"brand"`
	Model           string   `json:"model"`
	ManufactureYear int      `json:"manufacture_year"`
	FuelType        string   `json:"fuel_type"`
	ImageURL        string   `json:"image_url"`
	Version         int64    `json:"version"`
	Rev             Revision `json:"-"`
}

// Revision identifies one stored state of a document. Stores compare it on
// Replace; Term is only meaningful to stores that need a second component.
type Revision struct {
	Seq  int64
	Term int64
}

// NewDocument builds the document for a freshly created car.
func NewDocument(c domain.Car) *Document {
	return &Document{
		ID:              c.Key(),
		Brand:           c.Brand,
		Model:           c.Model,
		ManufactureYear: c.ManufactureYear,
		FuelType:        c.FuelType,
		Version:         c.Version,
	}
}

// Key is the document id of a car id.
func Key(carID int64) string { return strconv.FormatInt(carID, 10) }

// Store is a document store with conditional writes.
type Store interface {
	// Create fails with ErrDocumentExists when the id is taken.
	Create(ctx context.Context, doc *Document) error
	// Get fails with ErrDocumentNotFound. The returned Rev is current.
	Get(ctx context.Context, id string) (*Document, error)
	// Replace writes doc only if the stored revision still equals doc.Rev,
	// failing with ErrVersionConflict otherwise.
	Replace(ctx context.Context, doc *Document) error
	// Delete fails with ErrDocumentNotFound.
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
