package domain

// Events travel through the transactional outbox as {"event": <type>,
// "payload": <json>} envelopes on kafka. Payment events arrive from the
// payment gateway webhook relay; order events are produced by this service.

const (
	EventPaymentSucceeded = "PaymentSucceeded"
	EventPaymentFailed    = "PaymentFailed"
	EventOrderConfirmed   = "OrderConfirmed"
	EventOrderCancelled   = "OrderCancelled"
)

type PaymentSucceededEvent struct {
	OrderID          int64  `json:"order_id"`
	UserID           int64  `json:"user_id"`
	Amount           int64  `json:"amount"`
	GatewayPaymentID string `json:"gateway_payment_id"`
}

type PaymentFailedEvent struct {
	OrderID int64  `json:"order_id"`
	UserID  int64  `json:"user_id"`
	Reason  string `json:"reason"`
}

type OrderConfirmedEvent struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      int64  `json:"user_id"`
	TotalAmount int64  `json:"total_amount"`
}

type OrderCancelledEvent struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      int64  `json:"user_id"`
	Reason      string `json:"reason"`
}
