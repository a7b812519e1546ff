package service

import (
	"context"
	"errors"

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

type CartService interface {
	GetCurrent(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, userID int64, productID string, quantity int32) (*domain.Cart, error)
	UpdateItem(ctx context.Context, userID int64, productID string, quantity int32) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID int64, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID int64) error
}

type cartService struct {
	cartRepo repository.CartRepository
	catalog  client.CatalogClient
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewCartService(cartRepo repository.CartRepository, catalog client.CatalogClient, logger *zap.Logger) CartService {
	return &cartService{
		cartRepo: cartRepo,
		catalog:  catalog,
		logger:   logger,
		tracer:   otel.Tracer("cart_service"),
	}
}

// GetCurrent returns the user's active cart, creating an empty one on first
// touch so the client never has to handle a missing cart.
func (s *cartService) GetCurrent(ctx context.Context, userID int64) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.GetCurrent")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	cart, err := s.cartRepo.GetActiveByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		span.RecordError(err)
		return nil, err
	}

	cart, err = s.cartRepo.CreateActive(ctx, userID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			s.logger,
			"Failed to create cart",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, err
	}

	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, userID int64, productID string, quantity int32) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.AddItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.String("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	if quantity <= 0 {
		return nil, apperr.Newf(apperr.CodeInvalidArgument, "quantity must be positive, got %d", quantity)
	}

	// Reject products the catalog does not know about; stock is only
	// enforced later, at checkout and commit.
	products, err := s.catalog.GetMany(ctx, []string{productID})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if _, ok := products[productID]; !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "product %s not found", productID).
			WithDetail("product_id", productID)
	}

	cart, err := s.GetCurrent(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.UpsertItem(ctx, cart.ID, productID, quantity); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return s.cartRepo.GetActiveByUserID(ctx, userID)
}

// UpdateItem sets the quantity of an item; zero or negative removes it.
func (s *cartService) UpdateItem(ctx context.Context, userID int64, productID string, quantity int32) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.UpdateItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.String("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	cart, err := s.requireActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, cart.ID, productID, quantity); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "product %s is not in the cart", productID)
		}

		span.RecordError(err)
		return nil, err
	}

	return s.cartRepo.GetActiveByUserID(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID int64, productID string) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.RemoveItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.String("product_id", productID),
	)

	cart, err := s.requireActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.RemoveItem(ctx, cart.ID, productID); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "product %s is not in the cart", productID)
		}

		span.RecordError(err)
		return nil, err
	}

	return s.cartRepo.GetActiveByUserID(ctx, userID)
}

func (s *cartService) Clear(ctx context.Context, userID int64) error {
	ctx, span := s.tracer.Start(ctx, "CartService.Clear")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	cart, err := s.requireActiveCart(ctx, userID)
	if err != nil {
		return err
	}

	return s.cartRepo.ClearItems(ctx, cart.ID)
}

func (s *cartService) requireActiveCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	cart, err := s.cartRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "no active cart")
		}

		return nil, err
	}

	return cart, nil
}
