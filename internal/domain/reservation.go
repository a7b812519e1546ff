package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusCommitted ReservationStatus = "COMMITTED"
	ReservationStatusExpired   ReservationStatus = "EXPIRED"
	ReservationStatusReleased  ReservationStatus = "RELEASED"
)

// Reservation is a local record of an intent to hold stock; the authoritative
// stock decrement happens in the catalog service only when the reservation is
// committed. At most one row exists per (order, product).
type Reservation struct {
	ID        int64             `db:"id"`
	OrderID   int64             `db:"order_id"`
	ProductID string            `db:"product_id"`
	Quantity  int32             `db:"quantity"`
	Status    ReservationStatus `db:"status"`
	CreatedAt time.Time         `db:"created_at"`
	UpdatedAt time.Time         `db:"updated_at"`
}
