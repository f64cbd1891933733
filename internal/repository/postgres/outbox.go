package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CarCatalog/internal/domain"
	"github.com/utafrali/CarCatalog/pkg/database"
)

const insertOutbox = `
	INSERT INTO mirror_outbox (car_id, operation, version, payload)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at`

// enqueue records the mirror change for car inside tx.
func enqueue(ctx context.Context, tx pgx.Tx, op domain.ChangeOp, car domain.Car) (*domain.MirrorChange, error) {
	payload, err := json.Marshal(car)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}
	ch := &domain.MirrorChange{CarID: car.ID, Op: op, Version: car.Version, Car: car}
	if err := tx.QueryRow(ctx, insertOutbox, car.ID, string(op), car.Version, payload).
		Scan(&ch.ID, &ch.CreatedAt); err != nil {
		return nil, fmt.Errorf("enqueue mirror %s: %w", op, err)
	}
	return ch, nil
}

type OutboxRepository struct {
	db  database.DBTX
	obs *database.QueryObserver
}

func NewOutboxRepository(db database.DBTX, obs *database.QueryObserver) *OutboxRepository {
	return &OutboxRepository{db: db, obs: obs}
}

const listPending = `
	SELECT id, car_id, operation, version, payload, attempts, last_error, created_at
	FROM mirror_outbox
	WHERE processed_at IS NULL AND attempts < $1
	ORDER BY id
	LIMIT $2`

// ListPending returns unprocessed entries oldest first, skipping entries
// that already failed maxAttempts times.
func (r *OutboxRepository) ListPending(ctx context.Context, limit, maxAttempts int) (_ []domain.MirrorChange, err error) {
	ctx, end := r.obs.Observe(ctx, "ListPendingMirrorChanges", listPending)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listPending, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending mirror changes: %w", err)
	}
	defer rows.Close()

	var changes []domain.MirrorChange
	for rows.Next() {
		var (
			ch      domain.MirrorChange
			op      string
			payload []byte
		)
		if err := rows.Scan(&ch.ID, &ch.CarID, &op, &ch.Version, &payload, &ch.Attempts, &ch.LastError, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mirror change: %w", err)
		}
		ch.Op = domain.ChangeOp(op)
		if err := json.Unmarshal(payload, &ch.Car); err != nil {
			return nil, fmt.Errorf("decode mirror change %d: %w", ch.ID, err)
		}
		changes = append(changes, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mirror changes: %w", err)
	}
	return changes, nil
}

const markProcessed = `UPDATE mirror_outbox SET processed_at = NOW() WHERE id = ANY($1)`

func (r *OutboxRepository) MarkProcessed(ctx context.Context, ids ...int64) (err error) {
	if len(ids) == 0 {
		return nil
	}
	ctx, end := r.obs.Observe(ctx, "MarkMirrorChangesProcessed", markProcessed)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, markProcessed, ids); err != nil {
		return fmt.Errorf("mark mirror changes processed: %w", err)
	}
	return nil
}

const markFailed = `UPDATE mirror_outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1`

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, cause string) (err error) {
	ctx, end := r.obs.Observe(ctx, "MarkMirrorChangeFailed", markFailed)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, markFailed, id, cause); err != nil {
		return fmt.Errorf("mark mirror change %d failed: %w", id, err)
	}
	return nil
}
