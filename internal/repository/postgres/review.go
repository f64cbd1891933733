package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/CarCatalog/internal/domain"
	"github.com/utafrali/CarCatalog/pkg/database"
	apperrors "github.com/utafrali/CarCatalog/pkg/errors"
)

const foreignKeyViolation = "23503"

type ReviewRepository struct {
	db  database.DBTX
	obs *database.QueryObserver
}

func NewReviewRepository(db database.DBTX, obs *database.QueryObserver) *ReviewRepository {
	return &ReviewRepository{db: db, obs: obs}
}

const insertReview = `
	INSERT INTO reviews (car_id, user_name, rating, review_text, review_date)
	VALUES ($1, $2, $3, $4, NOW())
	RETURNING id, review_date`

// Create stamps the review with the database clock. A car_id that does not
// reference a car yields a not-found error and no row.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := r.obs.Observe(ctx, "CreateReview", insertReview)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, insertReview, review.CarID, review.UserName, review.Rating, review.ReviewText).
		Scan(&review.ID, &review.ReviewDate)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return apperrors.NotFound("car", review.CarID)
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

const getReview = `
	SELECT id, car_id, user_name, rating, review_text, review_date
	FROM reviews WHERE id = $1`

func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (_ *domain.Review, err error) {
	ctx, end := r.obs.Observe(ctx, "GetReview", getReview)
	defer func() { end(err) }()

	var rv domain.Review
	err = r.db.QueryRow(ctx, getReview, id).
		Scan(&rv.ID, &rv.CarID, &rv.UserName, &rv.Rating, &rv.ReviewText, &rv.ReviewDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("review", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get review %d: %w", id, err)
	}
	return &rv, nil
}

const listReviews = `
	SELECT id, car_id, user_name, rating, review_text, review_date
	FROM reviews WHERE car_id = $1
	ORDER BY id`

func (r *ReviewRepository) ListByCar(ctx context.Context, carID int64) (_ []domain.Review, err error) {
	ctx, end := r.obs.Observe(ctx, "ListReviews", listReviews)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listReviews, carID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.CarID, &rv.UserName, &rv.Rating, &rv.ReviewText, &rv.ReviewDate); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

const deleteReview = `DELETE FROM reviews WHERE id = $1 RETURNING car_id`

func (r *ReviewRepository) Delete(ctx context.Context, id int64) (carID int64, err error) {
	ctx, end := r.obs.Observe(ctx, "DeleteReview", deleteReview)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, deleteReview, id).Scan(&carID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperrors.NotFound("review", id)
	}
	if err != nil {
		return 0, fmt.Errorf("delete review %d: %w", id, err)
	}
	return carID, nil
}
