package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
)

func reaperFixture() (*fakeDB, *fakeOrderRepo, *fakeReservationRepo, *fakeOutboxRepo, *Reaper) {
	db := &fakeDB{}
	orderRepo := newFakeOrderRepo()
	resRepo := &fakeReservationRepo{}
	outbox := &fakeOutboxRepo{}

	orderRepo.orders[100] = &domain.Order{
		ID:          100,
		OrderNumber: "ORD-1-42-abcd1234",
		UserID:      42,
		Status:      domain.OrderStatusPendingPayment,
	}
	orderRepo.orders[200] = &domain.Order{
		ID:          200,
		OrderNumber: "ORD-2-43-efgh5678",
		UserID:      43,
		Status:      domain.OrderStatusPendingPayment,
	}

	reaper := NewReaper(db, orderRepo, resRepo, outbox, 2*time.Minute, time.Minute, 100, zap.NewNop())
	return db, orderRepo, resRepo, outbox, reaper
}

func TestSweepExpiresStaleOrders(t *testing.T) {
	db, orderRepo, resRepo, outbox, reaper := reaperFixture()

	old := time.Now().Add(-10 * time.Minute)
	resRepo.expired = []domain.Reservation{
		{ID: 1, OrderID: 100, ProductID: "p-1", Quantity: 2, CreatedAt: old},
		{ID: 2, OrderID: 100, ProductID: "p-2", Quantity: 1, CreatedAt: old},
		{ID: 3, OrderID: 200, ProductID: "p-1", Quantity: 3, CreatedAt: old},
	}

	err := reaper.Sweep(context.Background())
	require.NoError(t, err)

	// Two orders, one transaction each; reservations for the same order
	// are handled together.
	require.Len(t, db.txs, 2)
	for _, tx := range db.txs {
		assert.True(t, tx.committed)
	}

	require.Len(t, orderRepo.transitions, 2)
	for _, tr := range orderRepo.transitions {
		assert.Equal(t, domain.OrderStatusCancelled, tr.toStatus)
		assert.Equal(t, domain.PaymentStatusFailed, tr.payStatus)
		assert.True(t, tr.setCancelledAt)
	}

	require.Len(t, resRepo.marks, 2)
	assert.Equal(t, domain.ReservationStatusExpired, resRepo.marks[0].to)

	require.Len(t, outbox.saved, 2)
	assert.Equal(t, domain.EventOrderCancelled, outbox.saved[0].EventType)
}

func TestSweepNothingExpired(t *testing.T) {
	db, _, _, outbox, reaper := reaperFixture()

	err := reaper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, db.txs)
	assert.Empty(t, outbox.saved)
}

func TestSweepSkipsOrderPaymentAlreadyWon(t *testing.T) {
	db, orderRepo, resRepo, outbox, reaper := reaperFixture()
	orderRepo.transitionWon = false

	resRepo.expired = []domain.Reservation{
		{ID: 1, OrderID: 100, ProductID: "p-1", Quantity: 2, CreatedAt: time.Now().Add(-10 * time.Minute)},
	}

	err := reaper.Sweep(context.Background())
	require.NoError(t, err)

	// The flip lost, so no reservations were touched and no event emitted.
	assert.Empty(t, resRepo.marks)
	assert.Empty(t, outbox.saved)
	require.Len(t, db.txs, 1)
	assert.False(t, db.txs[0].committed)
}
