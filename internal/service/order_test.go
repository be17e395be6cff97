package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ywfa-shop/internal/model"
	"ywfa-shop/internal/repository"
)

const acceptTimeout = 5 * time.Minute

func createTestOrder(t *testing.T, db *gorm.DB, status model.OrderStatus) *model.Order {
	t.Helper()
	order := &model.Order{
		FirstName:     "Alex",
		LastName:      "Nguyen",
		Email:         "alex@example.com",
		Address:       "1 Example St",
		City:          "Melbourne",
		PostalCode:    "3000",
		OrderStatus:   status,
		Shipping:      decimal.Zero,
		Tax:           decimal.RequireFromString("4.82"),
		TotalPrice:    decimal.RequireFromString("53.00"),
		CheckoutToken: uuid.NewString(),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func newOrderService(db *gorm.DB) (*orderServiceImpl, repository.OrderRepository) {
	repo := repository.NewOrderRepository(db)
	return NewOrderService(repo, acceptTimeout).(*orderServiceImpl), repo
}

func TestTransitionLegal(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newOrderService(db)
	order := createTestOrder(t, db, model.StatusNew)

	require.NoError(t, svc.Transition(context.Background(), order, model.StatusPaymentAccepted))
	assert.Equal(t, model.StatusPaymentAccepted, order.OrderStatus)

	fresh, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentAccepted, fresh.OrderStatus)
}

func TestTransitionIllegal(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newOrderService(db)
	order := createTestOrder(t, db, model.StatusNew)

	err := svc.Transition(context.Background(), order, model.StatusDispatched)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, model.StatusNew, order.OrderStatus)
}

func TestTransitionFromTerminalState(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newOrderService(db)

	for _, terminal := range []model.OrderStatus{model.StatusCancelled, model.StatusCompleted} {
		order := createTestOrder(t, db, terminal)
		err := svc.Transition(context.Background(), order, model.StatusReady)
		assert.ErrorIs(t, err, ErrIllegalTransition, "from %s", terminal)
	}
}

func TestTransitionConflictDetected(t *testing.T) {
	db := newTestDB(t)
	svc, repo := newOrderService(db)
	order := createTestOrder(t, db, model.StatusPaymentAccepted)

	// another handler cancels the order between our read and our write
	stale := *order
	applied, err := repo.TransitionStatus(context.Background(), order.ID, model.StatusCancelled,
		time.Now(), model.StatusPaymentAccepted)
	require.NoError(t, err)
	require.True(t, applied)

	err = svc.Transition(context.Background(), &stale, model.StatusPaymentProcessing)
	assert.ErrorIs(t, err, ErrStateConflict)
	// the loser picked up the winner's state
	assert.Equal(t, model.StatusCancelled, stale.OrderStatus)
}

func TestCompletePayment(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newOrderService(db)
	order := createTestOrder(t, db, model.StatusPaymentProcessing)

	require.NoError(t, svc.CompletePayment(context.Background(), order))
	assert.Equal(t, model.StatusPaymentComplete, order.OrderStatus)
	assert.True(t, order.PaidStatus)

	// a second completion attempt finds nothing to do
	err := svc.CompletePayment(context.Background(), order)
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestReconcileDemotesExpiredAcceptance(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newOrderService(db)
	order := createTestOrder(t, db, model.StatusPaymentAccepted)

	now := order.UpdatedAt
	svc.now = func() time.Time { return now.Add(acceptTimeout + time.Second) }

	status, err := svc.ReconcileStatus(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, status)
	assert.Equal(t, model.StatusReady, order.OrderStatus)

	fresh, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, fresh.OrderStatus)

	// reading again does not re-demote; the order is no longer accepted
	status, err = svc.ReconcileStatus(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, status)
}

func TestReconcileWithinTimeout(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newOrderService(db)
	order := createTestOrder(t, db, model.StatusPaymentAccepted)

	svc.now = func() time.Time { return order.UpdatedAt.Add(acceptTimeout - time.Second) }

	status, err := svc.ReconcileStatus(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentAccepted, status)
}

func TestReconcileDemotesAtMostOnce(t *testing.T) {
	db := newTestDB(t)
	svc, repo := newOrderService(db)
	order := createTestOrder(t, db, model.StatusPaymentAccepted)

	// a concurrent reader with the same stale snapshot already demoted
	stale := *order
	applied, err := repo.DemoteExpired(context.Background(), order.ID, order.UpdatedAt,
		order.UpdatedAt.Add(acceptTimeout+time.Second))
	require.NoError(t, err)
	require.True(t, applied)

	svc.now = func() time.Time { return order.UpdatedAt.Add(acceptTimeout + 2*time.Second) }
	status, err := svc.ReconcileStatus(context.Background(), &stale)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, status)

	var events int64
	require.NoError(t, db.Model(&model.Order{}).
		Where("id = ? AND order_status = ?", order.ID, model.StatusReady).
		Count(&events).Error)
	assert.EqualValues(t, 1, events)
}
