// Package postgres implements the repository ports on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CarCatalog/internal/domain"
	"github.com/utafrali/CarCatalog/pkg/database"
	apperrors "github.com/utafrali/CarCatalog/pkg/errors"
)

type CarRepository struct {
	db  database.DBTX
	obs *database.QueryObserver
}

func NewCarRepository(db database.DBTX, obs *database.QueryObserver) *CarRepository {
	return &CarRepository{db: db, obs: obs}
}

const listCarsWithStats = `
	SELECT c.id, c.brand, c.model, c.manufacture_year, c.fuel_type, c.version,
	       AVG(r.rating)::float8, COUNT(r.id)
	FROM cars c
	LEFT JOIN reviews r ON r.car_id = c.id
	GROUP BY c.id
	ORDER BY c.id`

// ListWithStats returns every car, including those without reviews, in id
// order.
func (r *CarRepository) ListWithStats(ctx context.Context) (_ []domain.CarWithStats, err error) {
	ctx, end := r.obs.Observe(ctx, "ListCarsWithStats", listCarsWithStats)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listCarsWithStats)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	cars := []domain.CarWithStats{}
	for rows.Next() {
		var (
			c     domain.CarWithStats
			avg   *float64
			count int
		)
		if err := rows.Scan(&c.ID, &c.Brand, &c.Model, &c.ManufactureYear, &c.FuelType, &c.Version, &avg, &count); err != nil {
			return nil, fmt.Errorf("scan car row: %w", err)
		}
		c.Stats = domain.StatsFromAggregate(avg, count)
		cars = append(cars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate car rows: %w", err)
	}
	return cars, nil
}

const getCar = `
	SELECT id, brand, model, manufacture_year, fuel_type, version
	FROM cars WHERE id = $1`

func (r *CarRepository) GetByID(ctx context.Context, id int64) (_ *domain.Car, err error) {
	ctx, end := r.obs.Observe(ctx, "GetCar", getCar)
	defer func() { end(err) }()

	var c domain.Car
	err = r.db.QueryRow(ctx, getCar, id).Scan(&c.ID, &c.Brand, &c.Model, &c.ManufactureYear, &c.FuelType, &c.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("car", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get car %d: %w", id, err)
	}
	return &c, nil
}

const insertCar = `
	INSERT INTO cars (brand, model, manufacture_year, fuel_type)
	VALUES ($1, $2, $3, $4)
	RETURNING id, version`

// Create inserts car and fills in its id and version.
func (r *CarRepository) Create(ctx context.Context, car *domain.Car) (change *domain.MirrorChange, err error) {
	ctx, end := r.obs.Observe(ctx, "CreateCar", insertCar)
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertCar, car.Brand, car.Model, car.ManufactureYear, car.FuelType).
			Scan(&car.ID, &car.Version); err != nil {
			return fmt.Errorf("insert car: %w", err)
		}
		change, err = enqueue(ctx, tx, domain.OpCreate, *car)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

const updateCar = `
	UPDATE cars
	SET brand = $1, model = $2, manufacture_year = $3, fuel_type = $4,
	    version = version + 1, updated_at = NOW()
	WHERE id = $5
	RETURNING version`

// Update overwrites the four editable fields and bumps the version.
func (r *CarRepository) Update(ctx context.Context, car *domain.Car) (change *domain.MirrorChange, err error) {
	ctx, end := r.obs.Observe(ctx, "UpdateCar", updateCar)
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, updateCar, car.Brand, car.Model, car.ManufactureYear, car.FuelType, car.ID).
			Scan(&car.Version)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("car", car.ID)
		}
		if err != nil {
			return fmt.Errorf("update car %d: %w", car.ID, err)
		}
		change, err = enqueue(ctx, tx, domain.OpUpdate, *car)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

const deleteCar = `DELETE FROM cars WHERE id = $1 RETURNING version`

// Delete removes the car; its reviews go with it through ON DELETE CASCADE.
func (r *CarRepository) Delete(ctx context.Context, id int64) (change *domain.MirrorChange, err error) {
	ctx, end := r.obs.Observe(ctx, "DeleteCar", deleteCar)
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var version int64
		err := tx.QueryRow(ctx, deleteCar, id).Scan(&version)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("car", id)
		}
		if err != nil {
			return fmt.Errorf("delete car %d: %w", id, err)
		}
		change, err = enqueue(ctx, tx, domain.OpDelete, domain.Car{ID: id, Version: version + 1})
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}
