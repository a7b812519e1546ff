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

type CartRepository interface {
	GetActiveByUserID(ctx context.Context, userID int64) (*domain.Cart, error)
	CreateActive(ctx context.Context, userID int64) (*domain.Cart, error)
	UpsertItem(ctx context.Context, cartID int64, productID string, quantity int32) error
	UpdateItemQuantity(ctx context.Context, cartID int64, productID string, quantity int32) error
	RemoveItem(ctx context.Context, cartID int64, productID string) error
	ClearItems(ctx context.Context, cartID int64) error
	MarkCheckedOut(ctx context.Context, tx pgx.Tx, cartID int64) error
}

type cartRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCartRepository(pool *pgxpool.Pool, logger *zap.Logger) CartRepository {
	return &cartRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("cart_repository"),
	}
}

func (r *cartRepo) GetActiveByUserID(ctx context.Context, userID int64) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetActiveByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	queryCart := `
		SELECT id, user_id, status, created_at, updated_at
		FROM carts
		WHERE user_id = $1 AND status = 'ACTIVE';
	`

	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, queryCart, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.Status,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query active cart",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, err
	}

	queryItems := `
		SELECT id, cart_id, product_id, quantity, added_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at, id;
	`

	rows, err := r.pool.Query(ctx, queryItems, cart.ID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query cart_items",
			zap.Int64("cart_id", cart.ID),
			zap.Error(err),
		)

		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.AddedAt,
		); err != nil {
			span.RecordError(err)
			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan row",
				zap.Error(err),
			)

			return nil, err
		}

		cart.Items = append(cart.Items, item)
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

	return &cart, nil
}

func (r *cartRepo) CreateActive(ctx context.Context, userID int64) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.CreateActive")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		INSERT INTO carts (user_id, status, created_at, updated_at)
		VALUES ($1, 'ACTIVE', NOW(), NOW())
		RETURNING id, user_id, status, created_at, updated_at;
	`

	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.Status,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert cart",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, err
	}

	return &cart, nil
}

func (r *cartRepo) UpsertItem(ctx context.Context, cartID int64, productID string, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.UpsertItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
		attribute.String("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	// Adding an item already in the cart increments its quantity.
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity;
	`

	if _, err := r.pool.Exec(ctx, query, cartID, productID, quantity); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to upsert cart item",
			zap.Int64("cart_id", cartID),
			zap.String("product_id", productID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to upsert cart item: %w", err)
	}

	return nil
}

func (r *cartRepo) UpdateItemQuantity(ctx context.Context, cartID int64, productID string, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.UpdateItemQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
		attribute.String("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	query := `
		UPDATE cart_items
		SET quantity = $1
		WHERE cart_id = $2 AND product_id = $3;
	`

	commandTag, err := r.pool.Exec(ctx, query, quantity, cartID, productID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update cart item",
			zap.Int64("cart_id", cartID),
			zap.String("product_id", productID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to update cart item: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *cartRepo) RemoveItem(ctx context.Context, cartID int64, productID string) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.RemoveItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
		attribute.String("product_id", productID),
	)

	query := `
		DELETE FROM cart_items
		WHERE cart_id = $1 AND product_id = $2;
	`

	commandTag, err := r.pool.Exec(ctx, query, cartID, productID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to delete cart item",
			zap.Int64("cart_id", cartID),
			zap.String("product_id", productID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *cartRepo) ClearItems(ctx context.Context, cartID int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.ClearItems")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
	)

	query := `
		DELETE FROM cart_items
		WHERE cart_id = $1;
	`

	if _, err := r.pool.Exec(ctx, query, cartID); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to clear cart items",
			zap.Int64("cart_id", cartID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to clear cart items: %w", err)
	}

	return nil
}

func (r *cartRepo) MarkCheckedOut(ctx context.Context, tx pgx.Tx, cartID int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.MarkCheckedOut")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
	)

	// Conditional on ACTIVE so two concurrent checkouts of the same cart
	// cannot both convert it.
	query := `
		UPDATE carts
		SET status = 'CHECKED_OUT', updated_at = NOW()
		WHERE id = $1 AND status = 'ACTIVE';
	`

	commandTag, err := tx.Exec(ctx, query, cartID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to mark cart checked out",
			zap.Int64("cart_id", cartID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to mark cart checked out: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		mylogger.Warn(
			ctx,
			r.logger,
			"Cart is no longer active",
			zap.Int64("cart_id", cartID),
		)

		return ErrCartNotActive
	}

	return nil
}
