package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error)
	SetStatus(ctx context.Context, orderID int64, status domain.PaymentStatus, gatewayPaymentID string) error
}

type paymentRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewPaymentRepository(pool *pgxpool.Pool, logger *zap.Logger) PaymentRepository {
	return &paymentRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("payment_repository"),
	}
}

func (r *paymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", payment.OrderID),
		attribute.Int64("amount", payment.Amount),
	)

	query := `
		INSERT INTO payments (order_id, user_id, amount, status, mode, gateway_order_id, gateway_payment_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at;
	`

	if err := r.pool.QueryRow(
		ctx,
		query,
		payment.OrderID,
		payment.UserID,
		payment.Amount,
		string(payment.Status),
		string(payment.Mode),
		payment.GatewayOrderID,
		payment.GatewayPaymentID,
	).Scan(
		&payment.ID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert payment",
			zap.Int64("order_id", payment.OrderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

func (r *paymentRepo) GetByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error) {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.GetByOrderID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	query := `
		SELECT id, order_id, user_id, amount, status, mode, gateway_order_id, gateway_payment_id, created_at, updated_at
		FROM payments
		WHERE order_id = $1;
	`

	var payment domain.Payment
	if err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.UserID,
		&payment.Amount,
		&payment.Status,
		&payment.Mode,
		&payment.GatewayOrderID,
		&payment.GatewayPaymentID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query payment",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepo) SetStatus(ctx context.Context, orderID int64, status domain.PaymentStatus, gatewayPaymentID string) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.SetStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE payments
		SET status = $1,
			gateway_payment_id = COALESCE(NULLIF($2, ''), gateway_payment_id),
			updated_at = NOW()
		WHERE order_id = $3;
	`

	commandTag, err := r.pool.Exec(ctx, query, string(status), gatewayPaymentID, orderID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update payment",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to update payment: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}

	return nil
}
