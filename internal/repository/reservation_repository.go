package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
)

type ReservationRepository interface {
	ListPendingByOrder(ctx context.Context, orderID int64) ([]domain.Reservation, error)
	FindExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]domain.Reservation, error)
	MarkStatusByOrder(ctx context.Context, tx pgx.Tx, orderID int64, from, to domain.ReservationStatus) (int64, error)
}

type reservationRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewReservationRepository(pool *pgxpool.Pool, logger *zap.Logger) ReservationRepository {
	return &reservationRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("reservation_repository"),
	}
}

func (r *reservationRepo) ListPendingByOrder(ctx context.Context, orderID int64) ([]domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.ListPendingByOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	query := `
		SELECT id, order_id, product_id, quantity, status, created_at, updated_at
		FROM order_reservations
		WHERE order_id = $1 AND status = 'PENDING'
		ORDER BY id;
	`

	return r.queryReservations(ctx, query, orderID)
}

// FindExpiredPending returns PENDING reservations created before cutoff,
// oldest first, so the sweep works through the backlog in order.
func (r *reservationRepo) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.FindExpiredPending")
	defer span.End()

	span.SetAttributes(
		attribute.String("cutoff", cutoff.Format(time.RFC3339)),
		attribute.Int("limit", int(limit)),
	)

	query := `
		SELECT id, order_id, product_id, quantity, status, created_at, updated_at
		FROM order_reservations
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at
		LIMIT $2;
	`

	return r.queryReservations(ctx, query, cutoff, limit)
}

func (r *reservationRepo) queryReservations(ctx context.Context, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order_reservations",
			zap.Error(err),
		)

		return nil, err
	}
	defer rows.Close()

	var result []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.ID,
			&res.OrderID,
			&res.ProductID,
			&res.Quantity,
			&res.Status,
			&res.CreatedAt,
			&res.UpdatedAt,
		); err != nil {
			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan row",
				zap.Error(err),
			)

			return nil, err
		}

		result = append(result, res)
	}

	if err := rows.Err(); err != nil {
		mylogger.Error(
			ctx,
			r.logger,
			"Rows error",
			zap.Error(err),
		)

		return nil, err
	}

	return result, nil
}

func (r *reservationRepo) MarkStatusByOrder(ctx context.Context, tx pgx.Tx, orderID int64, from, to domain.ReservationStatus) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.MarkStatusByOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	)

	query := `
		UPDATE order_reservations
		SET status = $1, updated_at = NOW()
		WHERE order_id = $2 AND status = $3;
	`

	commandTag, err := tx.Exec(ctx, query, string(to), orderID, string(from))
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update reservations",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return 0, fmt.Errorf("failed to update reservations: %w", err)
	}

	return commandTag.RowsAffected(), nil
}
