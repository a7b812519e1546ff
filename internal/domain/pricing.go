package domain

import (
	"time"

	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
)

// Pricing holds the checkout pricing policy. The tax rate is expressed in
// basis points so the whole computation stays in integer arithmetic.
type Pricing struct {
	TaxRateBasisPoints int64
	ShippingFee        int64
	Discount           int64
}

// Tax applies the rate to a subtotal with round-half-up semantics.
func (p Pricing) Tax(subtotal int64) int64 {
	return (subtotal*p.TaxRateBasisPoints + 5000) / 10000
}

// ProductSnapshot is the catalog view of a product at checkout time.
// Price is a pointer because the catalog may return a product with no
// price set, which must fail checkout rather than default to zero.
type ProductSnapshot struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	SKU               string `json:"sku"`
	Price             *int64 `json:"price"`
	AvailableQuantity int32  `json:"available_quantity"`
}

// BuildOrder assembles an order aggregate from an active cart, the catalog
// snapshots of its products and the chosen shipping address. It is pure:
// no I/O, no clock reads beyond the passed-in now. The returned order is in
// PENDING_PAYMENT with one PENDING reservation per distinct product.
func BuildOrder(userID int64, cart *Cart, products map[string]ProductSnapshot, addr AddressSnapshot, mode PaymentMode, pricing Pricing, now time.Time) (*Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, apperr.New(apperr.CodeFailedPrecondition, "cart is empty")
	}

	order := &Order{
		OrderNumber: NewOrderNumber(userID, now),
		UserID:      userID,
		Status:      OrderStatusPendingPayment,
		PayStatus:   PaymentStatusPending,
		PaymentMode: mode,
		PlacedAt:    now,
	}

	var subtotal int64
	for _, ci := range cart.Items {
		p, ok := products[ci.ProductID]
		if !ok {
			return nil, apperr.Newf(apperr.CodeNotFound, "product %s not found", ci.ProductID).
				WithDetail("product_id", ci.ProductID)
		}
		if p.Price == nil {
			return nil, apperr.Newf(apperr.CodeFailedPrecondition, "product %s has no price", ci.ProductID).
				WithDetail("product_id", ci.ProductID)
		}
		if ci.Quantity <= 0 {
			return nil, apperr.Newf(apperr.CodeInvalidArgument, "invalid quantity %d for product %s", ci.Quantity, ci.ProductID)
		}
		if p.AvailableQuantity < ci.Quantity {
			return nil, apperr.Newf(apperr.CodeFailedPrecondition, "insufficient stock for product %s", ci.ProductID).
				WithDetail("product_id", ci.ProductID).
				WithDetail("requested", ci.Quantity).
				WithDetail("available", p.AvailableQuantity)
		}

		lineTotal := *p.Price * int64(ci.Quantity)
		subtotal += lineTotal
		order.Items = append(order.Items, OrderItem{
			ProductID:   p.ID,
			ProductSKU:  p.SKU,
			ProductName: p.Name,
			UnitPrice:   *p.Price,
			Quantity:    ci.Quantity,
			TotalPrice:  lineTotal,
		})
		order.Reservations = append(order.Reservations, Reservation{
			ProductID: p.ID,
			Quantity:  ci.Quantity,
			Status:    ReservationStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	order.SubtotalAmount = subtotal
	order.TaxAmount = pricing.Tax(subtotal)
	order.ShippingFee = pricing.ShippingFee
	order.DiscountAmount = pricing.Discount
	order.TotalAmount = subtotal + order.TaxAmount + order.ShippingFee - order.DiscountAmount

	order.ShippingAddress = &ShippingAddress{
		ContactName:  addr.ContactName,
		Phone:        addr.Phone,
		AddressLabel: addr.AddressLabel,
		Line1:        addr.Line1,
		Line2:        addr.Line2,
		Locality:     addr.Locality,
		City:         addr.City,
		State:        addr.State,
		Pincode:      addr.Pincode,
	}

	return order, nil
}
