package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/internal/inventory"
	"github.com/The-Hawkeye/go-ecommerce/internal/repository"
	outboxDomain "github.com/The-Hawkeye/go-ecommerce/pkg/outbox/domain"
)

// fakeTx satisfies pgx.Tx through embedding; only Commit and Rollback are
// exercised by the services.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit(_ context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

type fakeDB struct {
	txs      []*fakeTx
	beginErr error
}

func (db *fakeDB) Begin(_ context.Context) (pgx.Tx, error) {
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	tx := &fakeTx{}
	db.txs = append(db.txs, tx)
	return tx, nil
}

type fakeCartRepo struct {
	cart           *domain.Cart
	getErr         error
	markErr        error
	markedCheckout []int64
}

func (r *fakeCartRepo) GetActiveByUserID(_ context.Context, _ int64) (*domain.Cart, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.cart, nil
}

func (r *fakeCartRepo) CreateActive(_ context.Context, userID int64) (*domain.Cart, error) {
	r.cart = &domain.Cart{ID: 1, UserID: userID, Status: domain.CartStatusActive}
	return r.cart, nil
}

func (r *fakeCartRepo) UpsertItem(_ context.Context, _ int64, _ string, _ int32) error { return nil }
func (r *fakeCartRepo) UpdateItemQuantity(_ context.Context, _ int64, _ string, _ int32) error {
	return nil
}
func (r *fakeCartRepo) RemoveItem(_ context.Context, _ int64, _ string) error { return nil }
func (r *fakeCartRepo) ClearItems(_ context.Context, _ int64) error           { return nil }

func (r *fakeCartRepo) MarkCheckedOut(_ context.Context, _ pgx.Tx, cartID int64) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.markedCheckout = append(r.markedCheckout, cartID)
	return nil
}

type transition struct {
	orderID        int64
	toStatus       domain.OrderStatus
	payStatus      domain.PaymentStatus
	setCancelledAt bool
}

type fakeOrderRepo struct {
	orders map[int64]*domain.Order

	created        []*domain.Order
	createErr      error
	getErr         error
	transitionWon  bool
	transitions    []transition
	paymentStatus  map[int64]domain.PaymentStatus
	transitionErr  error
	setStatusCalls int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:        make(map[int64]*domain.Order),
		transitionWon: true,
		paymentStatus: make(map[int64]domain.PaymentStatus),
	}
}

func (r *fakeOrderRepo) Create(_ context.Context, _ pgx.Tx, order *domain.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	order.ID = int64(len(r.created) + 100)
	r.created = append(r.created, order)
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, orderID int64) (*domain.Order, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.orders[orderID], nil
}

func (r *fakeOrderRepo) GetByIDAndUser(_ context.Context, orderID, _ int64) (*domain.Order, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.orders[orderID], nil
}

func (r *fakeOrderRepo) List(_ context.Context, _ int64, _, _ int32) ([]domain.Order, error) {
	var result []domain.Order
	for _, o := range r.orders {
		result = append(result, *o)
	}
	return result, nil
}

func (r *fakeOrderRepo) TransitionFromPendingPayment(_ context.Context, _ pgx.Tx, orderID int64, toStatus domain.OrderStatus, payStatus domain.PaymentStatus, setCancelledAt bool) (bool, error) {
	if r.transitionErr != nil {
		return false, r.transitionErr
	}
	r.transitions = append(r.transitions, transition{orderID, toStatus, payStatus, setCancelledAt})
	if r.transitionWon {
		if o, ok := r.orders[orderID]; ok {
			o.Status = toStatus
			o.PayStatus = payStatus
		}
	}
	return r.transitionWon, nil
}

func (r *fakeOrderRepo) SetPaymentStatus(_ context.Context, orderID int64, payStatus domain.PaymentStatus) error {
	r.setStatusCalls++
	r.paymentStatus[orderID] = payStatus
	return nil
}

type statusMark struct {
	orderID  int64
	from, to domain.ReservationStatus
}

type fakeReservationRepo struct {
	pending []domain.Reservation
	expired []domain.Reservation
	marks   []statusMark
	listErr error
}

func (r *fakeReservationRepo) ListPendingByOrder(_ context.Context, _ int64) ([]domain.Reservation, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.pending, nil
}

func (r *fakeReservationRepo) FindExpiredPending(_ context.Context, _ time.Time, _ int32) ([]domain.Reservation, error) {
	return r.expired, nil
}

func (r *fakeReservationRepo) MarkStatusByOrder(_ context.Context, _ pgx.Tx, orderID int64, from, to domain.ReservationStatus) (int64, error) {
	r.marks = append(r.marks, statusMark{orderID, from, to})
	return int64(len(r.pending)), nil
}

type fakePaymentRepo struct {
	payment  *domain.Payment
	getErr   error
	statuses map[int64]domain.PaymentStatus
	created  []*domain.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{statuses: make(map[int64]domain.PaymentStatus)}
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *domain.Payment) error {
	payment.ID = int64(len(r.created) + 1)
	r.created = append(r.created, payment)
	r.payment = payment
	return nil
}

func (r *fakePaymentRepo) GetByOrderID(_ context.Context, _ int64) (*domain.Payment, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.payment == nil {
		return nil, repository.ErrPaymentNotFound
	}
	return r.payment, nil
}

func (r *fakePaymentRepo) SetStatus(_ context.Context, orderID int64, status domain.PaymentStatus, _ string) error {
	r.statuses[orderID] = status
	return nil
}

type fakeOutboxRepo struct {
	saved []*outboxDomain.OutboxEvent
}

func (r *fakeOutboxRepo) SaveOutboxEvent(_ context.Context, _ pgx.Tx, event *outboxDomain.OutboxEvent) error {
	r.saved = append(r.saved, event)
	return nil
}

func (r *fakeOutboxRepo) GetUnpublishedEvents(_ context.Context, _ pgx.Tx, _ int) ([]*outboxDomain.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkEventPublished(_ context.Context, _ pgx.Tx, _ int64) error { return nil }
func (r *fakeOutboxRepo) MarkEventFailed(_ context.Context, _ pgx.Tx, _ int64, _ string) error {
	return nil
}

type fakeCatalog struct {
	products map[string]domain.ProductSnapshot
	getErr   error
}

func (c *fakeCatalog) GetMany(_ context.Context, _ []string) (map[string]domain.ProductSnapshot, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.products, nil
}

func (c *fakeCatalog) Reserve(_ context.Context, _ string, _ int32, _ string) error { return nil }
func (c *fakeCatalog) Release(_ context.Context, _ string, _ int32, _ string) error { return nil }

type fakeAddresses struct {
	addr   *domain.AddressSnapshot
	getErr error
}

func (c *fakeAddresses) GetAddress(_ context.Context, _, _ int64) (*domain.AddressSnapshot, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.addr, nil
}

type fakeCommitter struct {
	result    *inventory.Result
	commitErr error
	committed [][]inventory.Item
	released  [][]inventory.Item
}

func (c *fakeCommitter) Commit(_ context.Context, _ int64, items []inventory.Item) (*inventory.Result, error) {
	if c.commitErr != nil {
		return nil, c.commitErr
	}
	c.committed = append(c.committed, items)
	if c.result != nil {
		return c.result, nil
	}
	return &inventory.Result{AllSucceeded: true}, nil
}

func (c *fakeCommitter) Release(_ context.Context, _ int64, items []inventory.Item) {
	c.released = append(c.released, items)
}

type refundCall struct {
	gatewayPaymentID string
	amount           int64
}

type fakeGateway struct {
	orderIDs  int
	refunds   []refundCall
	createErr error
	refundErr error
}

func (g *fakeGateway) CreateOrder(_ context.Context, _ int64, _ string) (string, error) {
	if g.createErr != nil {
		return "", g.createErr
	}
	g.orderIDs++
	return "gw-1", nil
}

func (g *fakeGateway) Refund(_ context.Context, gatewayPaymentID string, amount int64) error {
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, refundCall{gatewayPaymentID, amount})
	return nil
}
