package domain

import "time"

type CartStatus string

const (
	CartStatusActive     CartStatus = "ACTIVE"
	CartStatusCheckedOut CartStatus = "CHECKED_OUT"
)

// Cart is created lazily on first access and flips to CHECKED_OUT exactly
// once, when an order is created from it. It is never reused afterwards; a
// fresh ACTIVE cart appears on the next access.
type Cart struct {
	ID     int64      `db:"id"`
	UserID int64      `db:"user_id"`
	Status CartStatus `db:"status"`
	Items  []CartItem `db:"items"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type CartItem struct {
	ID        int64     `db:"id"`
	CartID    int64     `db:"cart_id"`
	ProductID string    `db:"product_id"`
	Quantity  int32     `db:"quantity"`
	AddedAt   time.Time `db:"added_at"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// DistinctProductIDs preserves the order items were added in, so downstream
// processing is deterministic.
func (c *Cart) DistinctProductIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
