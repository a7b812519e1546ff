package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/internal/repository"
	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
)

func checkoutFixture() (*fakeDB, *fakeCartRepo, *fakeOrderRepo, *fakeCatalog, *fakeAddresses, CheckoutService) {
	db := &fakeDB{}
	cartRepo := &fakeCartRepo{
		cart: &domain.Cart{
			ID:     1,
			UserID: 42,
			Status: domain.CartStatusActive,
			Items: []domain.CartItem{
				{ProductID: "p-1", Quantity: 2},
			},
		},
	}
	orderRepo := newFakeOrderRepo()
	catalog := &fakeCatalog{
		products: map[string]domain.ProductSnapshot{
			"p-1": {ID: "p-1", Name: "Mug", SKU: "MUG-01", Price: int64p(25000), AvailableQuantity: 5},
		},
	}
	addresses := &fakeAddresses{
		addr: &domain.AddressSnapshot{ID: 7, ContactName: "Asha Rao", City: "Bengaluru", Pincode: "560001"},
	}

	pricing := domain.Pricing{TaxRateBasisPoints: 1800, ShippingFee: 4900}
	svc := NewCheckoutService(db, cartRepo, orderRepo, catalog, addresses, pricing, zap.NewNop())

	return db, cartRepo, orderRepo, catalog, addresses, svc
}

func int64p(v int64) *int64 { return &v }

func TestCheckoutHappyPath(t *testing.T) {
	db, cartRepo, orderRepo, _, _, svc := checkoutFixture()

	order, err := svc.Checkout(context.Background(), 42, 7, domain.PaymentModeUPI)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, int64(50000), order.SubtotalAmount)
	assert.Equal(t, int64(9000), order.TaxAmount)
	assert.Equal(t, int64(63900), order.TotalAmount)

	// Order insert and cart flip share the same committed transaction.
	require.Len(t, db.txs, 1)
	assert.True(t, db.txs[0].committed)
	require.Len(t, orderRepo.created, 1)
	assert.Equal(t, []int64{1}, cartRepo.markedCheckout)

	require.Len(t, order.Reservations, 1)
	assert.Equal(t, domain.ReservationStatusPending, order.Reservations[0].Status)
}

func TestCheckoutNoActiveCart(t *testing.T) {
	db, cartRepo, orderRepo, _, _, svc := checkoutFixture()
	cartRepo.cart = nil
	cartRepo.getErr = repository.ErrCartNotFound

	_, err := svc.Checkout(context.Background(), 42, 7, domain.PaymentModeUPI)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Empty(t, db.txs)
	assert.Empty(t, orderRepo.created)
}

func TestCheckoutEmptyCart(t *testing.T) {
	_, cartRepo, orderRepo, _, _, svc := checkoutFixture()
	cartRepo.cart.Items = nil

	_, err := svc.Checkout(context.Background(), 42, 7, domain.PaymentModeUPI)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))
	assert.Empty(t, orderRepo.created)
}

func TestCheckoutCatalogDown(t *testing.T) {
	db, _, _, catalog, _, svc := checkoutFixture()
	catalog.getErr = apperr.New(apperr.CodeUnavailable, "catalog service unavailable")

	_, err := svc.Checkout(context.Background(), 42, 7, domain.PaymentModeUPI)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
	assert.Empty(t, db.txs)
}

func TestCheckoutAddressNotFound(t *testing.T) {
	_, _, orderRepo, _, addresses, svc := checkoutFixture()
	addresses.getErr = apperr.New(apperr.CodeNotFound, "address not found")

	_, err := svc.Checkout(context.Background(), 42, 7, domain.PaymentModeUPI)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Empty(t, orderRepo.created)
}

func TestCheckoutResolvesAddressBeforeCatalog(t *testing.T) {
	_, _, _, catalog, addresses, svc := checkoutFixture()
	addresses.getErr = apperr.New(apperr.CodeNotFound, "address not found")
	catalog.getErr = apperr.New(apperr.CodeUnavailable, "catalog service unavailable")

	_, err := svc.Checkout(context.Background(), 42, 7, domain.PaymentModeUPI)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestCheckoutLosesCartRace(t *testing.T) {
	db, cartRepo, _, _, _, svc := checkoutFixture()
	cartRepo.markErr = repository.ErrCartNotActive

	_, err := svc.Checkout(context.Background(), 42, 7, domain.PaymentModeUPI)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))

	// The transaction never committed, so the order insert is discarded.
	require.Len(t, db.txs, 1)
	assert.False(t, db.txs[0].committed)
	assert.True(t, db.txs[0].rolledBack)
}
