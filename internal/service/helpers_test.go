package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ywfa-shop/internal/cart"
	"ywfa-shop/internal/client"
	"ywfa-shop/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.PaymentEvent{},
		&model.WebhookEvent{},
	))
	return db
}

func seedTestProducts(t *testing.T, db *gorm.DB) []*model.Product {
	t.Helper()
	category := &model.Category{Name: "Booklets", Slug: "booklets"}
	require.NoError(t, db.Create(category).Error)

	products := []*model.Product{
		{CategoryID: category.ID, Code: "CODE1", Title: "Product One",
			Price: decimal.RequireFromString("15.00"), Available: true, Shipping: true},
		{CategoryID: category.ID, Code: "CODE2", Title: "Product Two",
			Price: decimal.RequireFromString("19.00"), Available: true, Shipping: true},
		{CategoryID: category.ID, Code: "CODE3", Title: "Product Three",
			Price: decimal.RequireFromString("12.00"), Available: true, Shipping: false},
	}
	for _, p := range products {
		require.NoError(t, db.Create(p).Error)
	}
	return products
}

func testPolicy() cart.Policy {
	return cart.Policy{
		ShippingCharge:     decimal.RequireFromString("0.00"),
		BulkShippingCharge: decimal.RequireFromString("10.00"),
		BulkQuantity:       10,
		TaxRate:            decimal.RequireFromString("10.00"),
	}
}

func customerFixture() Customer {
	return Customer{
		FirstName:  "Alex",
		LastName:   "Nguyen",
		Email:      "alex@example.com",
		Address:    "1 Example St",
		City:       "Melbourne",
		PostalCode: "3000",
	}
}

// fakeStripeClient stands in for the provider in bridge tests.
type fakeStripeClient struct {
	createCalls int
	failCreate  bool
	badSig      bool
	lastParams  *client.CheckoutSessionParams
}

func (f *fakeStripeClient) CreateCheckoutSession(_ context.Context, params *client.CheckoutSessionParams) (*client.CheckoutSession, error) {
	f.createCalls++
	f.lastParams = params
	if f.failCreate {
		return nil, context.DeadlineExceeded
	}
	return &client.CheckoutSession{
		ID:  "cs_test_123",
		URL: "https://checkout.example/cs_test_123",
		Raw: `{"id":"cs_test_123"}`,
	}, nil
}

func (f *fakeStripeClient) VerifyWebhookSignature(_ []byte, _ string) error {
	if f.badSig {
		return client.ErrBadSignature
	}
	return nil
}
