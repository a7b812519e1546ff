package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/client"
	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/internal/repository"
	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
)

type CheckoutService interface {
	Checkout(ctx context.Context, userID, addressID int64, mode domain.PaymentMode) (*domain.Order, error)
}

type checkoutService struct {
	db        DB
	cartRepo  repository.CartRepository
	orderRepo repository.OrderRepository
	catalog   client.CatalogClient
	addresses client.AddressClient
	pricing   domain.Pricing
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewCheckoutService(
	db DB,
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	catalog client.CatalogClient,
	addresses client.AddressClient,
	pricing domain.Pricing,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		db:        db,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		catalog:   catalog,
		addresses: addresses,
		pricing:   pricing,
		logger:    logger,
		tracer:    otel.Tracer("checkout_service"),
		now:       time.Now,
	}
}

// Checkout converts the user's active cart into a PENDING_PAYMENT order.
// Pricing, stock preview and the address snapshot are gathered up front;
// the order insert and the cart's ACTIVE to CHECKED_OUT flip then share one
// transaction, so a cart is consumed by exactly one order.
func (s *checkoutService) Checkout(ctx context.Context, userID, addressID int64, mode domain.PaymentMode) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "CheckoutService.Checkout")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("address_id", addressID),
	)

	cart, err := s.cartRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "no active cart")
		}

		span.RecordError(err)
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperr.New(apperr.CodeFailedPrecondition, "cart is empty")
	}

	addr, err := s.addresses.GetAddress(ctx, userID, addressID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	products, err := s.catalog.GetMany(ctx, cart.DistinctProductIDs())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	order, err := domain.BuildOrder(userID, cart, products, *addr, mode, s.pricing, s.now())
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to begin transaction",
			zap.Error(err),
		)

		return nil, err
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(shutdownCtx, s.logger, "Error rolling back transaction", zap.Error(err))
		}
	}()

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			s.logger,
			"Failed to create order",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, err
	}

	if err := s.cartRepo.MarkCheckedOut(ctx, tx, cart.ID); err != nil {
		if errors.Is(err, repository.ErrCartNotActive) {
			// A concurrent checkout of the same cart got there first.
			return nil, apperr.New(apperr.CodeFailedPrecondition, "cart was already checked out")
		}

		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to commit transaction",
			zap.Error(err),
		)

		return nil, err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order placed",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_amount", order.TotalAmount),
	)

	return order, nil
}
