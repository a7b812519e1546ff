package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "CREATED"
	OrderStatusPendingPayment  OrderStatus = "PENDING_PAYMENT"
	OrderStatusConfirmed       OrderStatus = "CONFIRMED"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusReturnRequested OrderStatus = "RETURN_REQUESTED"
	OrderStatusReturned        OrderStatus = "RETURNED"
)

// IsTerminal reports whether no further status transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusDelivered, OrderStatusReturned:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusInitiated       PaymentStatus = "INITIATED"
	PaymentStatusPending         PaymentStatus = "PENDING"
	PaymentStatusCaptured        PaymentStatus = "CAPTURED"
	PaymentStatusFailed          PaymentStatus = "FAILED"
	PaymentStatusRefundInitiated PaymentStatus = "REFUND_INITIATED"
	PaymentStatusRefunded        PaymentStatus = "REFUNDED"
)

type PaymentMode string

const (
	PaymentModeUPI  PaymentMode = "UPI"
	PaymentModeCard PaymentMode = "CARD"
	PaymentModeCOD  PaymentMode = "COD"
)

// Order is the aggregate root: it owns its items, reservations, shipping
// snapshot and payment record. All amounts are integer minor currency units
// and total = subtotal + tax + shipping - discount, fixed at creation.
type Order struct {
	ID          int64         `db:"id"`
	OrderNumber string        `db:"order_number"`
	UserID      int64         `db:"user_id"`
	Status      OrderStatus   `db:"status"`
	PayStatus   PaymentStatus `db:"payment_status"`
	PaymentMode PaymentMode   `db:"payment_mode"`

	SubtotalAmount int64 `db:"subtotal_amount"`
	TaxAmount      int64 `db:"tax_amount"`
	ShippingFee    int64 `db:"shipping_fee"`
	DiscountAmount int64 `db:"discount_amount"`
	TotalAmount    int64 `db:"total_amount"`

	PlacedAt    time.Time  `db:"placed_at"`
	CancelledAt *time.Time `db:"cancelled_at"`
	DeliveredAt *time.Time `db:"delivered_at"`

	Items           []OrderItem      `db:"items"`
	Reservations    []Reservation    `db:"reservations"`
	ShippingAddress *ShippingAddress `db:"shipping_address"`
}

// OrderItem is an immutable snapshot of name/sku/price taken at checkout;
// it is never re-derived from the live catalog.
type OrderItem struct {
	ID          int64  `db:"id"`
	OrderID     int64  `db:"order_id"`
	ProductID   string `db:"product_id"`
	ProductSKU  string `db:"product_sku"`
	ProductName string `db:"product_name"`
	UnitPrice   int64  `db:"unit_price"`
	Quantity    int32  `db:"quantity"`
	TotalPrice  int64  `db:"total_price"`
}

// ShippingAddress is the address snapshot owned by the order; the live
// address book can change without affecting placed orders.
type ShippingAddress struct {
	OrderID      int64  `db:"order_id"`
	ContactName  string `db:"contact_name"`
	Phone        string `db:"phone"`
	AddressLabel string `db:"address_label"`
	Line1        string `db:"address_line1"`
	Line2        string `db:"address_line2"`
	Locality     string `db:"locality"`
	City         string `db:"city"`
	State        string `db:"state"`
	Pincode      string `db:"pincode"`
}

// AddressSnapshot is what the user service returns for a (user, address) pair.
type AddressSnapshot struct {
	ID           int64  `json:"id"`
	AddressLabel string `json:"address_label"`
	ContactName  string `json:"contact_name"`
	Phone        string `json:"phone"`
	Line1        string `json:"address_line1"`
	Line2        string `json:"address_line2"`
	Locality     string `json:"locality"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
}

// NewOrderNumber builds a globally unique, human-meaningful order number.
// The uuid fragment keeps concurrent checkouts from ever colliding.
func NewOrderNumber(userID int64, now time.Time) string {
	return fmt.Sprintf("ORD-%d-%d-%s", now.UnixMilli(), userID%1000, uuid.NewString()[:8])
}
