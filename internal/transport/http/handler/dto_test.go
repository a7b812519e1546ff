package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
)

func TestOrderFromDomain(t *testing.T) {
	placed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	order := &domain.Order{
		ID:             100,
		OrderNumber:    "ORD-1-42-abcd1234",
		UserID:         42,
		Status:         domain.OrderStatusPendingPayment,
		PayStatus:      domain.PaymentStatusInitiated,
		PaymentMode:    domain.PaymentModeUPI,
		SubtotalAmount: 50000,
		TaxAmount:      9000,
		ShippingFee:    4900,
		TotalAmount:    63900,
		PlacedAt:       placed,
		Items: []domain.OrderItem{
			{ProductID: "p-1", ProductSKU: "MUG-01", ProductName: "Mug", UnitPrice: 25000, Quantity: 2, TotalPrice: 50000},
		},
		ShippingAddress: &domain.ShippingAddress{
			ContactName: "Asha Rao",
			City:        "Bengaluru",
			Pincode:     "560001",
		},
	}

	resp := orderFromDomain(order)

	assert.Equal(t, "ORD-1-42-abcd1234", resp.OrderNumber)
	assert.Equal(t, "PENDING_PAYMENT", resp.Status)
	assert.Equal(t, "INITIATED", resp.PaymentStatus)
	assert.Equal(t, int64(63900), resp.TotalAmount)
	assert.Nil(t, resp.CancelledAt)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Mug", resp.Items[0].ProductName)

	require.NotNil(t, resp.ShippingAddress)
	assert.Equal(t, "560001", resp.ShippingAddress.Pincode)
}

func TestOrderFromDomainNoAddress(t *testing.T) {
	resp := orderFromDomain(&domain.Order{ID: 1})
	assert.Nil(t, resp.ShippingAddress)
	assert.NotNil(t, resp.Items)
}

func TestCartFromDomain(t *testing.T) {
	cart := &domain.Cart{
		ID:     1,
		Status: domain.CartStatusActive,
		Items: []domain.CartItem{
			{ProductID: "p-1", Quantity: 2},
			{ProductID: "p-2", Quantity: 1},
		},
	}

	resp := cartFromDomain(cart)
	assert.Equal(t, "ACTIVE", resp.Status)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, int32(2), resp.Items[0].Quantity)
}
