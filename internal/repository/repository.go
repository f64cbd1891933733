// Package repository declares the persistence ports of the catalog.
package repository

import (
	"context"

	"github.com/utafrali/CarCatalog/internal/domain"
)

// CarRepository owns car rows. Every write also records the mirror change
// it implies, in the same transaction, and returns it.
type CarRepository interface {
	ListWithStats(ctx context.Context) ([]domain.CarWithStats, error)
	GetByID(ctx context.Context, id int64) (*domain.Car, error)
	Create(ctx context.Context, car *domain.Car) (*domain.MirrorChange, error)
	Update(ctx context.Context, car *domain.Car) (*domain.MirrorChange, error)
	Delete(ctx context.Context, id int64) (*domain.MirrorChange, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id int64) (*domain.Review, error)
	ListByCar(ctx context.Context, carID int64) ([]domain.Review, error)
	// Delete removes the review and returns the car it belonged to.
	Delete(ctx context.Context, id int64) (int64, error)
}

// OutboxRepository tracks mirror changes not yet applied to the mirror store.
type OutboxRepository interface {
	ListPending(ctx context.Context, limit, maxAttempts int) ([]domain.MirrorChange, error)
	MarkProcessed(ctx context.Context, ids ...int64) error
	MarkFailed(ctx context.Context, id int64, cause string) error
}
