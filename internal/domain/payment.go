package domain

import "time"

// Payment tracks a single payment attempt against an order. The order's
// payment_status column stays the single source of truth for state; this
// record carries the gateway linkage and amounts.
type Payment struct {
	ID               int64         `db:"id"`
	OrderID          int64         `db:"order_id"`
	UserID           int64         `db:"user_id"`
	Amount           int64         `db:"amount"`
	Status           PaymentStatus `db:"status"`
	Mode             PaymentMode   `db:"mode"`
	GatewayOrderID   string        `db:"gateway_order_id"`
	GatewayPaymentID string        `db:"gateway_payment_id"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}
