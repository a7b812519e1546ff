package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/internal/inventory"
	"github.com/The-Hawkeye/go-ecommerce/internal/repository"
	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
	outboxDomain "github.com/The-Hawkeye/go-ecommerce/pkg/outbox/domain"
	"github.com/The-Hawkeye/go-ecommerce/pkg/outbox/worker"
)

// InventoryCommitter is what the payment path needs from the inventory
// package: commit every reservation or release what was taken.
type InventoryCommitter interface {
	Commit(ctx context.Context, orderID int64, items []inventory.Item) (*inventory.Result, error)
	Release(ctx context.Context, orderID int64, items []inventory.Item)
}

type PaymentService interface {
	Initiate(ctx context.Context, userID, orderID int64) (*domain.Payment, error)
	HandleSuccess(ctx context.Context, event *domain.PaymentSucceededEvent) error
	HandleFailure(ctx context.Context, event *domain.PaymentFailedEvent) error
}

type paymentService struct {
	db              DB
	orderRepo       repository.OrderRepository
	reservationRepo repository.ReservationRepository
	paymentRepo     repository.PaymentRepository
	outboxRepo      worker.OutboxRepository
	committer       InventoryCommitter
	gateway         PaymentGateway
	logger          *zap.Logger
	tracer          trace.Tracer
}

func NewPaymentService(
	db DB,
	orderRepo repository.OrderRepository,
	reservationRepo repository.ReservationRepository,
	paymentRepo repository.PaymentRepository,
	outboxRepo worker.OutboxRepository,
	committer InventoryCommitter,
	gateway PaymentGateway,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		db:              db,
		orderRepo:       orderRepo,
		reservationRepo: reservationRepo,
		paymentRepo:     paymentRepo,
		outboxRepo:      outboxRepo,
		committer:       committer,
		gateway:         gateway,
		logger:          logger,
		tracer:          otel.Tracer("payment_service"),
	}
}

// Initiate opens a payment for a PENDING_PAYMENT order. Calling it again
// for the same order returns the existing payment unchanged.
func (s *paymentService) Initiate(ctx context.Context, userID, orderID int64) (*domain.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "PaymentService.Initiate")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("order_id", orderID),
	)

	order, err := s.orderRepo.GetByIDAndUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "order %d not found", orderID)
		}

		span.RecordError(err)
		return nil, err
	}

	if order.Status != domain.OrderStatusPendingPayment {
		return nil, apperr.Newf(apperr.CodeFailedPrecondition, "order is %s, payment is not open", order.Status)
	}

	existing, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrPaymentNotFound) {
		span.RecordError(err)
		return nil, err
	}

	gatewayOrderID, err := s.gateway.CreateOrder(ctx, order.TotalAmount, order.OrderNumber)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			s.logger,
			"Gateway order creation failed",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return nil, apperr.Wrap(err, apperr.CodeUnavailable, "payment gateway unavailable")
	}

	payment := &domain.Payment{
		OrderID:        orderID,
		UserID:         userID,
		Amount:         order.TotalAmount,
		Status:         domain.PaymentStatusPending,
		Mode:           order.PaymentMode,
		GatewayOrderID: gatewayOrderID,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.orderRepo.SetPaymentStatus(ctx, orderID, domain.PaymentStatusInitiated); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return payment, nil
}

// HandleSuccess is the confirmed-payment path. It commits the order's stock
// reservations and then races the reaper for the PENDING_PAYMENT row: the
// side that flips the status first wins, and a payment that loses the race
// is refunded along with its just-committed stock.
func (s *paymentService) HandleSuccess(ctx context.Context, event *domain.PaymentSucceededEvent) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.HandleSuccess")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", event.OrderID),
	)

	order, err := s.orderRepo.GetByID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			mylogger.Warn(
				ctx,
				s.logger,
				"Payment succeeded for unknown order",
				zap.Int64("order_id", event.OrderID),
			)

			return nil
		}

		span.RecordError(err)
		return err
	}

	if order.Status != domain.OrderStatusPendingPayment {
		return s.handleLateSuccess(ctx, order, event)
	}

	pending, err := s.reservationRepo.ListPendingByOrder(ctx, event.OrderID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	items := make([]inventory.Item, 0, len(pending))
	for _, res := range pending {
		items = append(items, inventory.Item{ProductID: res.ProductID, Quantity: res.Quantity})
	}

	result, err := s.committer.Commit(ctx, event.OrderID, items)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if !result.AllSucceeded {
		return s.cancelPaidOrder(ctx, order, event, result)
	}

	won, err := s.confirmOrder(ctx, order)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if !won {
		// The reaper cancelled the order between the status read and the
		// flip. Give the stock back and return the money.
		mylogger.Warn(
			ctx,
			s.logger,
			"Payment lost the race against expiry",
			zap.Int64("order_id", event.OrderID),
		)

		s.committer.Release(ctx, event.OrderID, items)
		return s.refund(ctx, order, event.GatewayPaymentID)
	}

	if err := s.paymentRepo.SetStatus(ctx, event.OrderID, domain.PaymentStatusCaptured, event.GatewayPaymentID); err != nil {
		if !errors.Is(err, repository.ErrPaymentNotFound) {
			span.RecordError(err)
			return err
		}
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order confirmed",
		zap.Int64("order_id", event.OrderID),
		zap.String("order_number", order.OrderNumber),
	)

	return nil
}

func (s *paymentService) confirmOrder(ctx context.Context, order *domain.Order) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return false, err
	}
	defer s.rollback(ctx, tx)

	won, err := s.orderRepo.TransitionFromPendingPayment(ctx, tx, order.ID, domain.OrderStatusConfirmed, domain.PaymentStatusCaptured, false)
	if err != nil {
		return false, err
	}
	if !won {
		return false, nil
	}

	if _, err := s.reservationRepo.MarkStatusByOrder(ctx, tx, order.ID, domain.ReservationStatusPending, domain.ReservationStatusCommitted); err != nil {
		return false, err
	}

	err = s.emitEvent(ctx, tx, order.ID, domain.EventOrderConfirmed, &domain.OrderConfirmedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
	})
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return false, err
	}

	return true, nil
}

// cancelPaidOrder handles the unhappy middle: money arrived but stock did
// not. The committer already rolled back any partial decrements, so only
// the local state flip and the refund remain.
func (s *paymentService) cancelPaidOrder(ctx context.Context, order *domain.Order, event *domain.PaymentSucceededEvent, result *inventory.Result) error {
	for _, f := range result.Failures {
		mylogger.Warn(
			ctx,
			s.logger,
			"Stock commit failed after payment",
			zap.Int64("order_id", order.ID),
			zap.String("product_id", f.ProductID),
			zap.String("reason", string(f.Reason)),
		)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return err
	}
	defer s.rollback(ctx, tx)

	won, err := s.orderRepo.TransitionFromPendingPayment(ctx, tx, order.ID, domain.OrderStatusCancelled, domain.PaymentStatusRefundInitiated, true)
	if err != nil {
		return err
	}

	if won {
		if _, err := s.reservationRepo.MarkStatusByOrder(ctx, tx, order.ID, domain.ReservationStatusPending, domain.ReservationStatusReleased); err != nil {
			return err
		}

		err = s.emitEvent(ctx, tx, order.ID, domain.EventOrderCancelled, &domain.OrderCancelledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Reason:      "stock unavailable at payment",
		})
		if err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
			return err
		}
	}

	return s.refund(ctx, order, event.GatewayPaymentID)
}

// handleLateSuccess deals with a confirmation that arrives after the order
// already left PENDING_PAYMENT. A cancelled order gets its money back;
// anything else is a duplicate delivery and a no-op.
func (s *paymentService) handleLateSuccess(ctx context.Context, order *domain.Order, event *domain.PaymentSucceededEvent) error {
	if order.Status != domain.OrderStatusCancelled {
		mylogger.Info(
			ctx,
			s.logger,
			"Ignoring duplicate payment confirmation",
			zap.Int64("order_id", order.ID),
			zap.String("status", string(order.Status)),
		)

		return nil
	}

	mylogger.Warn(
		ctx,
		s.logger,
		"Payment confirmed for a cancelled order, refunding",
		zap.Int64("order_id", order.ID),
	)

	return s.refund(ctx, order, event.GatewayPaymentID)
}

func (s *paymentService) refund(ctx context.Context, order *domain.Order, gatewayPaymentID string) error {
	if err := s.gateway.Refund(ctx, gatewayPaymentID, order.TotalAmount); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Refund failed",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to refund order %d: %w", order.ID, err)
	}

	if err := s.orderRepo.SetPaymentStatus(ctx, order.ID, domain.PaymentStatusRefundInitiated); err != nil {
		return err
	}

	if err := s.paymentRepo.SetStatus(ctx, order.ID, domain.PaymentStatusRefundInitiated, gatewayPaymentID); err != nil {
		if !errors.Is(err, repository.ErrPaymentNotFound) {
			return err
		}
	}

	return nil
}

// HandleFailure cancels a PENDING_PAYMENT order whose payment failed.
// Reservations were never committed, so only their local rows flip to
// RELEASED. An order already out of PENDING_PAYMENT is left alone.
func (s *paymentService) HandleFailure(ctx context.Context, event *domain.PaymentFailedEvent) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.HandleFailure")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", event.OrderID),
	)

	order, err := s.orderRepo.GetByID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			mylogger.Warn(
				ctx,
				s.logger,
				"Payment failed for unknown order",
				zap.Int64("order_id", event.OrderID),
			)

			return nil
		}

		span.RecordError(err)
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return err
	}
	defer s.rollback(ctx, tx)

	won, err := s.orderRepo.TransitionFromPendingPayment(ctx, tx, event.OrderID, domain.OrderStatusCancelled, domain.PaymentStatusFailed, true)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !won {
		mylogger.Info(
			ctx,
			s.logger,
			"Order already resolved, ignoring payment failure",
			zap.Int64("order_id", event.OrderID),
		)

		return nil
	}

	if _, err := s.reservationRepo.MarkStatusByOrder(ctx, tx, event.OrderID, domain.ReservationStatusPending, domain.ReservationStatusReleased); err != nil {
		span.RecordError(err)
		return err
	}

	err = s.emitEvent(ctx, tx, event.OrderID, domain.EventOrderCancelled, &domain.OrderCancelledEvent{
		OrderID:     event.OrderID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Reason:      event.Reason,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return err
	}

	if err := s.paymentRepo.SetStatus(ctx, event.OrderID, domain.PaymentStatusFailed, ""); err != nil {
		if !errors.Is(err, repository.ErrPaymentNotFound) {
			return err
		}
	}

	return nil
}

func (s *paymentService) rollback(ctx context.Context, tx pgx.Tx) {
	shutdownCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		mylogger.Warn(shutdownCtx, s.logger, "Error rolling back transaction", zap.Error(err))
	}
}

func (s *paymentService) emitEvent(ctx context.Context, tx pgx.Tx, orderID int64, eventType string, payload any) error {
	wrapper := map[string]any{
		"event":   eventType,
		"payload": payload,
	}

	wrapperBytes, err := json.Marshal(wrapper)
	if err != nil {
		return fmt.Errorf("failed to marshal wrapper: %w", err)
	}

	outboxEvent := &outboxDomain.OutboxEvent{
		AggregateType: "Order",
		AggregateID:   fmt.Sprintf("%d", orderID),
		EventType:     eventType,
		Payload:       wrapperBytes,
		Topic:         "order_events",
	}

	return s.outboxRepo.SaveOutboxEvent(ctx, tx, outboxEvent)
}
