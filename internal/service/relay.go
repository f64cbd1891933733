package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/CarCatalog/internal/domain"
	"github.com/utafrali/CarCatalog/internal/repository"
	apperrors "github.com/utafrali/CarCatalog/pkg/errors"
)

var relayEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_mirror_relay_entries_total",
	Help: "Outbox entries handled by the mirror relay, by result.",
}, []string{"result"})

// Reconciler brings one mirror document in line with the relational row.
// *mirror.Syncer implements it.
type Reconciler interface {
	Reconcile(ctx context.Context, carID int64, car *domain.Car) error
}

type RelayConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// MirrorRelay retries mirror writes that failed on the request path. Rather
// than replaying each entry it syncs the car's current row, so entries that
// arrive late or out of order cannot roll the document back.
type MirrorRelay struct {
	outbox repository.OutboxRepository
	cars   repository.CarRepository
	mirror Reconciler
	cfg    RelayConfig
	logger *slog.Logger
}

func NewMirrorRelay(outbox repository.OutboxRepository, cars repository.CarRepository, m Reconciler, cfg RelayConfig, logger *slog.Logger) *MirrorRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &MirrorRelay{outbox: outbox, cars: cars, mirror: m, cfg: cfg, logger: logger}
}

// Run processes a batch every interval until ctx is done.
func (r *MirrorRelay) Run(ctx context.Context) {
	if r.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.Error("mirror relay error", slog.String("error", err.Error()))
			} else if n > 0 {
				r.logger.Info("mirror relay synced entries", slog.Int("entries", n))
			}
		}
	}
}

// RunOnce handles one batch of pending entries and reports how many were
// marked processed.
func (r *MirrorRelay) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.ListPending(ctx, r.cfg.BatchSize, r.cfg.MaxAttempts)
	if err != nil {
		return 0, err
	}

	var order []int64
	byCar := make(map[int64][]int64)
	for _, ch := range pending {
		if _, seen := byCar[ch.CarID]; !seen {
			order = append(order, ch.CarID)
		}
		byCar[ch.CarID] = append(byCar[ch.CarID], ch.ID)
	}

	processed := 0
	for _, carID := range order {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		ids := byCar[carID]

		car, err := r.cars.GetByID(ctx, carID)
		if errors.Is(err, apperrors.ErrNotFound) {
			car, err = nil, nil
		}
		if err != nil {
			r.logger.WarnContext(ctx, "mirror relay could not load car", slog.Int64("car_id", carID), slog.String("error", err.Error()))
			continue
		}

		if err := r.mirror.Reconcile(ctx, carID, car); err != nil {
			relayEntries.WithLabelValues("failed").Add(float64(len(ids)))
			for _, id := range ids {
				if markErr := r.outbox.MarkFailed(ctx, id, err.Error()); markErr != nil {
					r.logger.WarnContext(ctx, "mirror relay could not record failure", slog.Int64("outbox_id", id), slog.String("error", markErr.Error()))
				}
			}
			continue
		}

		if err := r.outbox.MarkProcessed(ctx, ids...); err != nil {
			r.logger.WarnContext(ctx, "mirror relay could not mark entries processed", slog.Int64("car_id", carID), slog.String("error", err.Error()))
			continue
		}
		relayEntries.WithLabelValues("processed").Add(float64(len(ids)))
		processed += len(ids)
	}
	return processed, nil
}
