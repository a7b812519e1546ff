package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/internal/repository"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
	outboxDomain "github.com/The-Hawkeye/go-ecommerce/pkg/outbox/domain"
	"github.com/The-Hawkeye/go-ecommerce/pkg/outbox/worker"
)

// Reaper expires reservations whose payment window has lapsed. Each sweep
// groups expired PENDING reservations by order and resolves one order per
// transaction, so a crash mid-sweep leaves every touched order consistent.
type Reaper struct {
	db              DB
	orderRepo       repository.OrderRepository
	reservationRepo repository.ReservationRepository
	outboxRepo      worker.OutboxRepository
	logger          *zap.Logger
	tracer          trace.Tracer

	pendingTimeout time.Duration
	sweepInterval  time.Duration
	batchSize      int32
	now            func() time.Time
}

func NewReaper(
	db DB,
	orderRepo repository.OrderRepository,
	reservationRepo repository.ReservationRepository,
	outboxRepo worker.OutboxRepository,
	pendingTimeout, sweepInterval time.Duration,
	batchSize int32,
	logger *zap.Logger,
) *Reaper {
	return &Reaper{
		db:              db,
		orderRepo:       orderRepo,
		reservationRepo: reservationRepo,
		outboxRepo:      outboxRepo,
		logger:          logger,
		tracer:          otel.Tracer("reservation_reaper"),
		pendingTimeout:  pendingTimeout,
		sweepInterval:   sweepInterval,
		batchSize:       batchSize,
		now:             time.Now,
	}
}

func (r *Reaper) Start(ctx context.Context) {
	mylogger.Info(ctx, r.logger, "Starting reservation reaper",
		zap.Duration("pending_timeout", r.pendingTimeout),
		zap.Duration("sweep_interval", r.sweepInterval),
	)

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(ctx, r.logger, "Reservation reaper stopped")
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				mylogger.Error(ctx, r.logger, "Sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep resolves every order whose PENDING reservations outlived the
// payment window. Stock was never decremented for these, so expiry is a
// purely local state flip plus a cancellation event.
func (r *Reaper) Sweep(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "Reaper.Sweep")
	defer span.End()

	cutoff := r.now().Add(-r.pendingTimeout)
	expired, err := r.reservationRepo.FindExpiredPending(ctx, cutoff, r.batchSize)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	span.SetAttributes(
		attribute.Int("expired_count", len(expired)),
	)

	var orderIDs []int64
	seen := make(map[int64]struct{})
	for _, res := range expired {
		if _, ok := seen[res.OrderID]; ok {
			continue
		}
		seen[res.OrderID] = struct{}{}
		orderIDs = append(orderIDs, res.OrderID)
	}

	for _, orderID := range orderIDs {
		if err := r.expireOrder(ctx, orderID); err != nil {
			// Keep sweeping: one stuck order must not block the rest.
			mylogger.Error(
				ctx,
				r.logger,
				"Failed to expire order",
				zap.Int64("order_id", orderID),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (r *Reaper) expireOrder(ctx context.Context, orderID int64) error {
	ctx, span := r.tracer.Start(ctx, "Reaper.expireOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	order, err := r.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil
		}

		span.RecordError(err)
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(shutdownCtx, r.logger, "Error rolling back transaction", zap.Error(err))
		}
	}()

	// The payment path races this flip; losing here means a confirmation
	// landed first and the order is no longer ours to cancel.
	won, err := r.orderRepo.TransitionFromPendingPayment(ctx, tx, orderID, domain.OrderStatusCancelled, domain.PaymentStatusFailed, true)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !won {
		mylogger.Info(
			ctx,
			r.logger,
			"Order resolved before expiry, skipping",
			zap.Int64("order_id", orderID),
		)

		return nil
	}

	marked, err := r.reservationRepo.MarkStatusByOrder(ctx, tx, orderID, domain.ReservationStatusPending, domain.ReservationStatusExpired)
	if err != nil {
		span.RecordError(err)
		return err
	}

	wrapper := map[string]any{
		"event": domain.EventOrderCancelled,
		"payload": &domain.OrderCancelledEvent{
			OrderID:     orderID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Reason:      "payment window expired",
		},
	}

	wrapperBytes, err := json.Marshal(wrapper)
	if err != nil {
		return fmt.Errorf("failed to marshal wrapper: %w", err)
	}

	outboxEvent := &outboxDomain.OutboxEvent{
		AggregateType: "Order",
		AggregateID:   fmt.Sprintf("%d", orderID),
		EventType:     domain.EventOrderCancelled,
		Payload:       wrapperBytes,
		Topic:         "order_events",
	}

	if err := r.outboxRepo.SaveOutboxEvent(ctx, tx, outboxEvent); err != nil {
		span.RecordError(err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, r.logger, "Failed to commit transaction", zap.Error(err))
		return err
	}

	mylogger.Info(
		ctx,
		r.logger,
		"Expired pending order",
		zap.Int64("order_id", orderID),
		zap.Int64("reservations_expired", marked),
	)

	return nil
}
