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

type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, orderID int64) (*domain.Order, error)
	GetByIDAndUser(ctx context.Context, orderID, userID int64) (*domain.Order, error)
	List(ctx context.Context, userID int64, limit, offset int32) ([]domain.Order, error)
	TransitionFromPendingPayment(ctx context.Context, tx pgx.Tx, orderID int64, toStatus domain.OrderStatus, payStatus domain.PaymentStatus, setCancelledAt bool) (bool, error)
	SetPaymentStatus(ctx context.Context, orderID int64, payStatus domain.PaymentStatus) error
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("order_repository"),
	}
}

func (r *orderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", order.UserID),
		attribute.String("order_number", order.OrderNumber),
		attribute.Int("items_count", len(order.Items)),
	)

	queryOrder := `
		INSERT INTO orders (
			order_number, user_id, status, payment_status, payment_mode,
			subtotal_amount, tax_amount, shipping_fee, discount_amount, total_amount,
			placed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id;
	`

	if err := tx.QueryRow(
		ctx,
		queryOrder,
		order.OrderNumber,
		order.UserID,
		string(order.Status),
		string(order.PayStatus),
		string(order.PaymentMode),
		order.SubtotalAmount,
		order.TaxAmount,
		order.ShippingFee,
		order.DiscountAmount,
		order.TotalAmount,
		order.PlacedAt,
	).Scan(&order.ID); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (order_id, product_id, product_sku, product_name, unit_price, quantity, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.QueryRow(
			ctx,
			queryItem,
			order.ID,
			item.ProductID,
			item.ProductSKU,
			item.ProductName,
			item.UnitPrice,
			item.Quantity,
			item.TotalPrice,
		).Scan(&item.ID); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to insert order item",
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)

			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	queryReservation := `
		INSERT INTO order_reservations (order_id, product_id, quantity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`

	for i := range order.Reservations {
		res := &order.Reservations[i]
		res.OrderID = order.ID
		if err := tx.QueryRow(
			ctx,
			queryReservation,
			order.ID,
			res.ProductID,
			res.Quantity,
			string(res.Status),
			res.CreatedAt,
			res.UpdatedAt,
		).Scan(&res.ID); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to insert reservation",
				zap.String("product_id", res.ProductID),
				zap.Error(err),
			)

			return fmt.Errorf("failed to insert reservation: %w", err)
		}
	}

	if order.ShippingAddress != nil {
		addr := order.ShippingAddress
		addr.OrderID = order.ID

		queryAddr := `
			INSERT INTO shipping_addresses (
				order_id, contact_name, phone, address_label,
				address_line1, address_line2, locality, city, state, pincode
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
		`

		if _, err := tx.Exec(
			ctx,
			queryAddr,
			order.ID,
			addr.ContactName,
			addr.Phone,
			addr.AddressLabel,
			addr.Line1,
			addr.Line2,
			addr.Locality,
			addr.City,
			addr.State,
			addr.Pincode,
		); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to insert shipping address",
				zap.Error(err),
			)

			return fmt.Errorf("failed to insert shipping address: %w", err)
		}
	}

	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	return r.getOne(ctx, span, "WHERE id = $1", orderID)
}

func (r *orderRepo) GetByIDAndUser(ctx context.Context, orderID, userID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByIDAndUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("user_id", userID),
	)

	return r.getOne(ctx, span, "WHERE id = $1 AND user_id = $2", orderID, userID)
}

func (r *orderRepo) getOne(ctx context.Context, span trace.Span, where string, args ...any) (*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT id, order_number, user_id, status, payment_status, payment_mode,
			subtotal_amount, tax_amount, shipping_fee, discount_amount, total_amount,
			placed_at, cancelled_at, delivered_at
		FROM orders
		%s;
	`, where)

	var order domain.Order
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.PayStatus,
		&order.PaymentMode,
		&order.SubtotalAmount,
		&order.TaxAmount,
		&order.ShippingFee,
		&order.DiscountAmount,
		&order.TotalAmount,
		&order.PlacedAt,
		&order.CancelledAt,
		&order.DeliveredAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order",
			zap.Error(err),
		)

		return nil, err
	}

	if err := r.loadItems(ctx, &order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := r.loadReservations(ctx, &order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := r.loadShippingAddress(ctx, &order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &order, nil
}

func (r *orderRepo) loadItems(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT id, order_id, product_id, product_sku, product_name, unit_price, quantity, total_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id;
	`

	rows, err := r.pool.Query(ctx, query, order.ID)
	if err != nil {
		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order_items",
			zap.Error(err),
		)

		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductSKU,
			&item.ProductName,
			&item.UnitPrice,
			&item.Quantity,
			&item.TotalPrice,
		); err != nil {
			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan row",
				zap.Error(err),
			)

			return err
		}

		order.Items = append(order.Items, item)
	}

	return rows.Err()
}

func (r *orderRepo) loadReservations(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT id, order_id, product_id, quantity, status, created_at, updated_at
		FROM order_reservations
		WHERE order_id = $1
		ORDER BY id;
	`

	rows, err := r.pool.Query(ctx, query, order.ID)
	if err != nil {
		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order_reservations",
			zap.Error(err),
		)

		return err
	}
	defer rows.Close()

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

			return err
		}

		order.Reservations = append(order.Reservations, res)
	}

	return rows.Err()
}

func (r *orderRepo) loadShippingAddress(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT order_id, contact_name, phone, address_label,
			address_line1, address_line2, locality, city, state, pincode
		FROM shipping_addresses
		WHERE order_id = $1;
	`

	var addr domain.ShippingAddress
	if err := r.pool.QueryRow(ctx, query, order.ID).Scan(
		&addr.OrderID,
		&addr.ContactName,
		&addr.Phone,
		&addr.AddressLabel,
		&addr.Line1,
		&addr.Line2,
		&addr.Locality,
		&addr.City,
		&addr.State,
		&addr.Pincode,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query shipping address",
			zap.Error(err),
		)

		return err
	}

	order.ShippingAddress = &addr
	return nil
}

func (r *orderRepo) List(ctx context.Context, userID int64, limit, offset int32) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int("limit", int(limit)),
		attribute.Int("offset", int(offset)),
	)

	query := `
		SELECT id, order_number, user_id, status, payment_status, payment_mode,
			subtotal_amount, tax_amount, shipping_fee, discount_amount, total_amount,
			placed_at, cancelled_at, delivered_at
		FROM orders
		WHERE user_id = $1
		ORDER BY placed_at DESC
		LIMIT $2 OFFSET $3;
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query orders",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.OrderNumber,
			&order.UserID,
			&order.Status,
			&order.PayStatus,
			&order.PaymentMode,
			&order.SubtotalAmount,
			&order.TaxAmount,
			&order.ShippingFee,
			&order.DiscountAmount,
			&order.TotalAmount,
			&order.PlacedAt,
			&order.CancelledAt,
			&order.DeliveredAt,
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

		result = append(result, order)
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

// TransitionFromPendingPayment moves an order out of PENDING_PAYMENT only if
// it is still there. The reaper and the payment path both funnel through
// this check-and-set, so exactly one of them wins per order.
func (r *orderRepo) TransitionFromPendingPayment(ctx context.Context, tx pgx.Tx, orderID int64, toStatus domain.OrderStatus, payStatus domain.PaymentStatus, setCancelledAt bool) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.TransitionFromPendingPayment")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("to_status", string(toStatus)),
	)

	query := `
		UPDATE orders
		SET status = $1,
			payment_status = $2,
			cancelled_at = CASE WHEN $3 THEN NOW() ELSE cancelled_at END
		WHERE id = $4 AND status = 'PENDING_PAYMENT';
	`

	commandTag, err := tx.Exec(ctx, query, string(toStatus), string(payStatus), setCancelledAt, orderID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to transition order",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return false, fmt.Errorf("failed to transition order: %w", err)
	}

	return commandTag.RowsAffected() > 0, nil
}

func (r *orderRepo) SetPaymentStatus(ctx context.Context, orderID int64, payStatus domain.PaymentStatus) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.SetPaymentStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("payment_status", string(payStatus)),
	)

	query := `
		UPDATE orders
		SET payment_status = $1
		WHERE id = $2;
	`

	commandTag, err := r.pool.Exec(ctx, query, string(payStatus), orderID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update payment status",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to update payment status: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}
