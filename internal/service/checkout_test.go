package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ywfa-shop/internal/cart"
	"ywfa-shop/internal/model"
	"ywfa-shop/internal/repository"
)

func TestPlaceOrderRefusesEmptyCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckoutService(db, repository.NewOrderRepository(db), repository.NewProductRepository(db))

	crt := cart.New(testPolicy())
	_, err := svc.PlaceOrder(context.Background(), crt, customerFixture(), uuid.NewString())
	assert.ErrorIs(t, err, ErrEmptyCart)

	var count int64
	require.NoError(t, db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlaceOrder(t *testing.T) {
	db := newTestDB(t)
	products := seedTestProducts(t, db)
	svc := NewCheckoutService(db, repository.NewOrderRepository(db), repository.NewProductRepository(db))

	crt := cart.New(testPolicy())
	require.NoError(t, crt.Add(products[0], 1, false))
	require.NoError(t, crt.Add(products[1], 2, false))

	order, err := svc.PlaceOrder(context.Background(), crt, customerFixture(), uuid.NewString())
	require.NoError(t, err)
	require.NotZero(t, order.ID)

	assert.Equal(t, model.StatusNew, order.OrderStatus)
	assert.False(t, order.PaidStatus)
	assert.Equal(t, "53.00", order.TotalPrice.StringFixed(2))
	assert.Equal(t, "0.00", order.Shipping.StringFixed(2))
	// tax-inclusive back calculation: 53.00 / (10 + 1)
	assert.Equal(t, "4.82", order.Tax.StringFixed(2))

	var items []*model.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&items).Error)
	require.Len(t, items, crt.Len())

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.PriceTotal())
	}
	assert.Equal(t, order.TotalPrice.StringFixed(2), sum.Add(order.Shipping).StringFixed(2))
}

func TestPlaceOrderNoTaxRate(t *testing.T) {
	db := newTestDB(t)
	products := seedTestProducts(t, db)
	svc := NewCheckoutService(db, repository.NewOrderRepository(db), repository.NewProductRepository(db))

	policy := testPolicy()
	policy.TaxRate = decimal.Zero
	crt := cart.New(policy)
	require.NoError(t, crt.Add(products[0], 1, false))

	order, err := svc.PlaceOrder(context.Background(), crt, customerFixture(), uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, "0.00", order.Tax.StringFixed(2))
}

func TestPlaceOrderIdempotentPerToken(t *testing.T) {
	db := newTestDB(t)
	products := seedTestProducts(t, db)
	svc := NewCheckoutService(db, repository.NewOrderRepository(db), repository.NewProductRepository(db))

	crt := cart.New(testPolicy())
	require.NoError(t, crt.Add(products[0], 1, false))

	token := uuid.NewString()
	first, err := svc.PlaceOrder(context.Background(), crt, customerFixture(), token)
	require.NoError(t, err)

	// a double-clicked submission replays the same token
	second, err := svc.PlaceOrder(context.Background(), crt, customerFixture(), token)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&model.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// a fresh token creates a fresh order
	third, err := svc.PlaceOrder(context.Background(), crt, customerFixture(), uuid.NewString())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestPlaceOrderVanishedProduct(t *testing.T) {
	db := newTestDB(t)
	products := seedTestProducts(t, db)
	svc := NewCheckoutService(db, repository.NewOrderRepository(db), repository.NewProductRepository(db))

	crt := cart.New(testPolicy())
	require.NoError(t, crt.Add(products[0], 1, false))
	require.NoError(t, db.Delete(products[0]).Error)

	_, err := svc.PlaceOrder(context.Background(), crt, customerFixture(), uuid.NewString())
	assert.ErrorIs(t, err, ErrProductsChanged)
}

func TestPlaceOrderShippingCopiedFromCart(t *testing.T) {
	db := newTestDB(t)
	products := seedTestProducts(t, db)
	svc := NewCheckoutService(db, repository.NewOrderRepository(db), repository.NewProductRepository(db))

	policy := testPolicy()
	policy.ShippingCharge = decimal.RequireFromString("15.00")
	crt := cart.New(policy)
	require.NoError(t, crt.Add(products[0], 1, false))

	order, err := svc.PlaceOrder(context.Background(), crt, customerFixture(), uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, "15.00", order.Shipping.StringFixed(2))
	assert.Equal(t, "30.00", order.TotalPrice.StringFixed(2))
}
