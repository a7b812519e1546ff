package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
)

func int64p(v int64) *int64 { return &v }

func testPricing() Pricing {
	return Pricing{TaxRateBasisPoints: 1800, ShippingFee: 4900, Discount: 0}
}

func testCart(items ...CartItem) *Cart {
	return &Cart{ID: 1, UserID: 42, Status: CartStatusActive, Items: items}
}

func testAddress() AddressSnapshot {
	return AddressSnapshot{
		ID:          7,
		ContactName: "Asha Rao",
		Phone:       "9999999999",
		Line1:       "221B MG Road",
		City:        "Bengaluru",
		State:       "KA",
		Pincode:     "560001",
	}
}

func TestPricingTaxRoundHalfUp(t *testing.T) {
	cases := []struct {
		name     string
		rateBP   int64
		subtotal int64
		want     int64
	}{
		{"exact", 1800, 10000, 1800},
		{"rounds up at half", 1800, 2525, 455},   // 454.5 -> 455
		{"rounds down below half", 1800, 2524, 454}, // 454.32 -> 454
		{"zero subtotal", 1800, 0, 0},
		{"zero rate", 0, 99999, 0},
		{"single unit", 1800, 1, 0},
		{"large subtotal", 1800, 123456789, 22222222}, // 22222222.02 -> 22222222
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Pricing{TaxRateBasisPoints: tc.rateBP}
			assert.Equal(t, tc.want, p.Tax(tc.subtotal))
		})
	}
}

func TestBuildOrderTotals(t *testing.T) {
	cart := testCart(
		CartItem{ProductID: "p-1", Quantity: 2},
		CartItem{ProductID: "p-2", Quantity: 1},
	)
	products := map[string]ProductSnapshot{
		"p-1": {ID: "p-1", Name: "Mug", SKU: "MUG-01", Price: int64p(25000), AvailableQuantity: 5},
		"p-2": {ID: "p-2", Name: "Kettle", SKU: "KTL-09", Price: int64p(149900), AvailableQuantity: 1},
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	order, err := BuildOrder(42, cart, products, testAddress(), PaymentModeUPI, testPricing(), now)
	require.NoError(t, err)

	assert.Equal(t, int64(199900), order.SubtotalAmount)
	assert.Equal(t, int64(35982), order.TaxAmount)
	assert.Equal(t, int64(4900), order.ShippingFee)
	assert.Equal(t, int64(0), order.DiscountAmount)
	assert.Equal(t, int64(240782), order.TotalAmount)

	assert.Equal(t, OrderStatusPendingPayment, order.Status)
	assert.Equal(t, PaymentStatusPending, order.PayStatus)
	assert.Equal(t, now, order.PlacedAt)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "Mug", order.Items[0].ProductName)
	assert.Equal(t, int64(50000), order.Items[0].TotalPrice)

	require.Len(t, order.Reservations, 2)
	for _, r := range order.Reservations {
		assert.Equal(t, ReservationStatusPending, r.Status)
	}

	require.NotNil(t, order.ShippingAddress)
	assert.Equal(t, "Bengaluru", order.ShippingAddress.City)
}

func TestBuildOrderEmptyCart(t *testing.T) {
	_, err := BuildOrder(42, testCart(), nil, testAddress(), PaymentModeUPI, testPricing(), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))

	_, err = BuildOrder(42, nil, nil, testAddress(), PaymentModeUPI, testPricing(), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))
}

func TestBuildOrderMissingProduct(t *testing.T) {
	cart := testCart(CartItem{ProductID: "gone", Quantity: 1})

	_, err := BuildOrder(42, cart, map[string]ProductSnapshot{}, testAddress(), PaymentModeUPI, testPricing(), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	id, ok := apperr.DetailOf(err, "product_id")
	require.True(t, ok)
	assert.Equal(t, "gone", id)
}

func TestBuildOrderUnpricedProduct(t *testing.T) {
	cart := testCart(CartItem{ProductID: "p-1", Quantity: 1})
	products := map[string]ProductSnapshot{
		"p-1": {ID: "p-1", Name: "Draft", SKU: "DR-01", Price: nil, AvailableQuantity: 10},
	}

	_, err := BuildOrder(42, cart, products, testAddress(), PaymentModeUPI, testPricing(), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))
}

func TestBuildOrderInsufficientStock(t *testing.T) {
	cart := testCart(CartItem{ProductID: "p-1", Quantity: 3})
	products := map[string]ProductSnapshot{
		"p-1": {ID: "p-1", Name: "Mug", SKU: "MUG-01", Price: int64p(25000), AvailableQuantity: 2},
	}

	_, err := BuildOrder(42, cart, products, testAddress(), PaymentModeUPI, testPricing(), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))

	avail, ok := apperr.DetailOf(err, "available")
	require.True(t, ok)
	assert.Equal(t, int32(2), avail)
}

func TestNewOrderNumberUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		n := NewOrderNumber(42, now)
		_, dup := seen[n]
		require.False(t, dup, "duplicate order number %s", n)
		seen[n] = struct{}{}
	}
}
