package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/internal/inventory"
	"github.com/The-Hawkeye/go-ecommerce/pkg/apperr"
)

type paymentFixture struct {
	db          *fakeDB
	orderRepo   *fakeOrderRepo
	resRepo     *fakeReservationRepo
	paymentRepo *fakePaymentRepo
	outbox      *fakeOutboxRepo
	committer   *fakeCommitter
	gateway     *fakeGateway
	svc         PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		db:          &fakeDB{},
		orderRepo:   newFakeOrderRepo(),
		resRepo:     &fakeReservationRepo{},
		paymentRepo: newFakePaymentRepo(),
		outbox:      &fakeOutboxRepo{},
		committer:   &fakeCommitter{},
		gateway:     &fakeGateway{},
	}

	f.orderRepo.orders[100] = &domain.Order{
		ID:          100,
		OrderNumber: "ORD-1-42-abcd1234",
		UserID:      42,
		Status:      domain.OrderStatusPendingPayment,
		PayStatus:   domain.PaymentStatusPending,
		PaymentMode: domain.PaymentModeUPI,
		TotalAmount: 63900,
	}
	f.resRepo.pending = []domain.Reservation{
		{ID: 1, OrderID: 100, ProductID: "p-1", Quantity: 2, Status: domain.ReservationStatusPending},
	}

	f.svc = NewPaymentService(f.db, f.orderRepo, f.resRepo, f.paymentRepo, f.outbox, f.committer, f.gateway, zap.NewNop())
	return f
}

func succeededEvent() *domain.PaymentSucceededEvent {
	return &domain.PaymentSucceededEvent{OrderID: 100, UserID: 42, Amount: 63900, GatewayPaymentID: "pay_9"}
}

func TestInitiateCreatesPaymentOnce(t *testing.T) {
	f := newPaymentFixture()

	payment, err := f.svc.Initiate(context.Background(), 42, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(63900), payment.Amount)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.Equal(t, "gw-1", payment.GatewayOrderID)
	assert.Equal(t, domain.PaymentStatusInitiated, f.orderRepo.paymentStatus[100])

	// Second call finds the existing payment and does not touch the gateway.
	again, err := f.svc.Initiate(context.Background(), 42, 100)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, again.ID)
	assert.Equal(t, 1, f.gateway.orderIDs)
}

func TestInitiateRejectsResolvedOrder(t *testing.T) {
	f := newPaymentFixture()
	f.orderRepo.orders[100].Status = domain.OrderStatusCancelled

	_, err := f.svc.Initiate(context.Background(), 42, 100)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))
}

func TestHandleSuccessConfirmsOrder(t *testing.T) {
	f := newPaymentFixture()

	err := f.svc.HandleSuccess(context.Background(), succeededEvent())
	require.NoError(t, err)

	require.Len(t, f.committer.committed, 1)
	assert.Equal(t, []inventory.Item{{ProductID: "p-1", Quantity: 2}}, f.committer.committed[0])

	require.Len(t, f.orderRepo.transitions, 1)
	assert.Equal(t, domain.OrderStatusConfirmed, f.orderRepo.transitions[0].toStatus)
	assert.Equal(t, domain.PaymentStatusCaptured, f.orderRepo.transitions[0].payStatus)

	require.Len(t, f.resRepo.marks, 1)
	assert.Equal(t, domain.ReservationStatusCommitted, f.resRepo.marks[0].to)

	require.Len(t, f.outbox.saved, 1)
	assert.Equal(t, domain.EventOrderConfirmed, f.outbox.saved[0].EventType)
	assert.Equal(t, "order_events", f.outbox.saved[0].Topic)

	assert.Equal(t, domain.PaymentStatusCaptured, f.paymentRepo.statuses[100])
	assert.Empty(t, f.gateway.refunds)
}

func TestHandleSuccessStockGone(t *testing.T) {
	f := newPaymentFixture()
	f.committer.result = &inventory.Result{
		AllSucceeded: false,
		Failures:     []inventory.Failure{{ProductID: "p-1", Reason: inventory.ReasonInsufficientStock}},
	}

	err := f.svc.HandleSuccess(context.Background(), succeededEvent())
	require.NoError(t, err)

	require.Len(t, f.orderRepo.transitions, 1)
	assert.Equal(t, domain.OrderStatusCancelled, f.orderRepo.transitions[0].toStatus)
	assert.Equal(t, domain.PaymentStatusRefundInitiated, f.orderRepo.transitions[0].payStatus)
	assert.True(t, f.orderRepo.transitions[0].setCancelledAt)

	require.Len(t, f.resRepo.marks, 1)
	assert.Equal(t, domain.ReservationStatusReleased, f.resRepo.marks[0].to)

	require.Len(t, f.gateway.refunds, 1)
	assert.Equal(t, refundCall{"pay_9", 63900}, f.gateway.refunds[0])

	require.Len(t, f.outbox.saved, 1)
	assert.Equal(t, domain.EventOrderCancelled, f.outbox.saved[0].EventType)
}

func TestHandleSuccessLosesRaceToReaper(t *testing.T) {
	f := newPaymentFixture()
	f.orderRepo.transitionWon = false

	err := f.svc.HandleSuccess(context.Background(), succeededEvent())
	require.NoError(t, err)

	// Committed stock is given back and the money returned.
	require.Len(t, f.committer.released, 1)
	require.Len(t, f.gateway.refunds, 1)
	assert.Equal(t, domain.PaymentStatusRefundInitiated, f.orderRepo.paymentStatus[100])
	assert.Empty(t, f.outbox.saved)
}

func TestHandleSuccessAfterCancellationRefunds(t *testing.T) {
	f := newPaymentFixture()
	f.orderRepo.orders[100].Status = domain.OrderStatusCancelled

	err := f.svc.HandleSuccess(context.Background(), succeededEvent())
	require.NoError(t, err)

	assert.Empty(t, f.committer.committed)
	require.Len(t, f.gateway.refunds, 1)
	assert.Equal(t, domain.PaymentStatusRefundInitiated, f.orderRepo.paymentStatus[100])
}

func TestHandleSuccessDuplicateIsNoop(t *testing.T) {
	f := newPaymentFixture()
	f.orderRepo.orders[100].Status = domain.OrderStatusConfirmed

	err := f.svc.HandleSuccess(context.Background(), succeededEvent())
	require.NoError(t, err)

	assert.Empty(t, f.committer.committed)
	assert.Empty(t, f.gateway.refunds)
}

func TestHandleFailureCancelsPendingOrder(t *testing.T) {
	f := newPaymentFixture()

	err := f.svc.HandleFailure(context.Background(), &domain.PaymentFailedEvent{OrderID: 100, UserID: 42, Reason: "card declined"})
	require.NoError(t, err)

	require.Len(t, f.orderRepo.transitions, 1)
	assert.Equal(t, domain.OrderStatusCancelled, f.orderRepo.transitions[0].toStatus)
	assert.Equal(t, domain.PaymentStatusFailed, f.orderRepo.transitions[0].payStatus)

	require.Len(t, f.resRepo.marks, 1)
	assert.Equal(t, domain.ReservationStatusReleased, f.resRepo.marks[0].to)

	require.Len(t, f.outbox.saved, 1)
	assert.Equal(t, domain.EventOrderCancelled, f.outbox.saved[0].EventType)
	assert.Equal(t, domain.PaymentStatusFailed, f.paymentRepo.statuses[100])

	// Nothing was ever decremented, so nothing is released remotely.
	assert.Empty(t, f.committer.released)
}

func TestHandleFailureOnResolvedOrderIsNoop(t *testing.T) {
	f := newPaymentFixture()
	f.orderRepo.transitionWon = false

	err := f.svc.HandleFailure(context.Background(), &domain.PaymentFailedEvent{OrderID: 100, Reason: "card declined"})
	require.NoError(t, err)

	assert.Empty(t, f.resRepo.marks)
	assert.Empty(t, f.outbox.saved)
}
