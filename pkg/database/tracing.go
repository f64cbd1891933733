package database

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/CarCatalog/pkg/database"

// QueryObserver opens a span per query and logs queries slower than
// SlowThreshold. A nil observer still traces but never logs.
type QueryObserver struct {
	SlowThreshold time.Duration
	Logger        *slog.Logger
}

// Observe starts a span named db.<operation>. Call the returned func with
// the query's error once it finishes.
func (o *QueryObserver) Observe(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if o == nil || o.Logger == nil || o.SlowThreshold <= 0 {
			return
		}
		if elapsed := time.Since(start); elapsed >= o.SlowThreshold {
			o.Logger.WarnContext(ctx, "slow query",
				slog.String("operation", operation),
				slog.Duration("duration", elapsed),
			)
		}
	}
}
