package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/internal/repository"
	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
)

type OrderService interface {
	GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64, limit, offset int32) ([]domain.Order, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewOrderService(orderRepo repository.OrderRepository, logger *zap.Logger) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		logger:    logger,
		tracer:    otel.Tracer("order_service"),
	}
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder")
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

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID int64, limit, offset int32) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.orderRepo.List(ctx, userID, limit, offset)
}
