package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ywfa-shop/internal/model"
)

func testPolicy() Policy {
	return Policy{
		ShippingCharge:     decimal.RequireFromString("0.00"),
		BulkShippingCharge: decimal.RequireFromString("10.00"),
		BulkQuantity:       10,
		TaxRate:            decimal.RequireFromString("10.00"),
	}
}

func testProducts() []*model.Product {
	prices := []string{"15.00", "19.00", "12.00", "5.00", "10.00", "35.00"}
	products := make([]*model.Product, len(prices))
	for i, price := range prices {
		products[i] = &model.Product{
			ID:       uint(i + 1),
			Code:     "CODE" + string(rune('1'+i)),
			Title:    "Product #" + string(rune('1'+i)),
			Price:    decimal.RequireFromString(price),
			Shipping: true,
		}
	}
	return products
}

func assertMoney(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.Equal(t, expected, actual.StringFixed(2))
}

func TestEmptyCart(t *testing.T) {
	c := New(testPolicy())

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.TotalQuantity())
	assertMoney(t, "0.00", c.TotalPrice())
	assert.False(t, c.Modified())
}

func TestAdd(t *testing.T) {
	c := New(testPolicy())
	products := testProducts()

	require.NoError(t, c.Add(products[0], 1, false))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.TotalQuantity())
	assertMoney(t, "15.00", c.TotalPrice())

	require.NoError(t, c.Add(products[1], 2, false))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 3, c.TotalQuantity())
	assertMoney(t, "53.00", c.TotalPrice())

	require.NoError(t, c.Add(products[2], 1, false))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 4, c.TotalQuantity())
	assertMoney(t, "65.00", c.TotalPrice())

	assert.True(t, c.Modified())
}

func TestAddIncrementsExistingLine(t *testing.T) {
	c := New(testPolicy())
	products := testProducts()

	require.NoError(t, c.Add(products[0], 1, false))
	require.NoError(t, c.Add(products[0], 2, false))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.TotalQuantity())
	assertMoney(t, "45.00", c.TotalPrice())
}

func TestAddReplaceSetsQuantity(t *testing.T) {
	c := New(testPolicy())
	products := testProducts()

	require.NoError(t, c.Add(products[0], 5, false))
	require.NoError(t, c.Add(products[0], 2, true))

	assert.Equal(t, 2, c.TotalQuantity())
	assertMoney(t, "30.00", c.TotalPrice())
}

func TestAddZeroQuantityKeepsLine(t *testing.T) {
	c := New(testPolicy())
	products := testProducts()

	require.NoError(t, c.Add(products[0], 0, false))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.TotalQuantity())
	assertMoney(t, "0.00", c.TotalPrice())
}

func TestAddNegativeQuantity(t *testing.T) {
	c := New(testPolicy())
	products := testProducts()

	assert.ErrorIs(t, c.Add(products[0], -1, false), ErrNegativeQuantity)
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Modified())
}

func TestPriceFrozenAtAddTime(t *testing.T) {
	c := New(testPolicy())
	product := testProducts()[0]

	require.NoError(t, c.Add(product, 1, false))
	product.Price = decimal.RequireFromString("99.00")
	require.NoError(t, c.Add(product, 1, false))

	assertMoney(t, "30.00", c.TotalPrice())
}

func populateCart(t *testing.T, c *Cart, products []*model.Product) {
	t.Helper()
	for i, p := range products {
		quantity := 1
		if i%2 == 1 {
			quantity = 2
		}
		require.NoError(t, c.Add(p, quantity, false))
	}
	assert.Equal(t, len(products), c.Len())
	assert.Equal(t, 9, c.TotalQuantity())
	assertMoney(t, "155.00", c.TotalPrice())
}

func TestRemove(t *testing.T) {
	c := New(testPolicy())
	products := testProducts()
	populateCart(t, c, products)

	// remove just 1 of item #2
	c.Remove(products[1], 1)
	assert.Equal(t, len(products), c.Len())
	assert.Equal(t, 8, c.TotalQuantity())
	assertMoney(t, "136.00", c.TotalPrice())

	// removing at least the line quantity drops the line
	c.Remove(products[1], 5)
	assert.Equal(t, len(products)-1, c.Len())
	assert.Equal(t, 7, c.TotalQuantity())

	// quantity zero removes the line outright
	c.Remove(products[0], 0)
	assert.Equal(t, len(products)-2, c.Len())
	assert.Equal(t, 6, c.TotalQuantity())
}

func TestRemoveAbsentProductIsNoop(t *testing.T) {
	c := New(testPolicy())
	products := testProducts()

	c.Remove(products[0], 1)
	assert.Equal(t, 0, c.Len())
}

func TestClear(t *testing.T) {
	c := New(testPolicy())
	populateCart(t, c, testProducts())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.TotalQuantity())
	assertMoney(t, "0.00", c.TotalPrice())

	// idempotent
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestShippingStepFunction(t *testing.T) {
	policy := Policy{
		ShippingCharge:     decimal.RequireFromString("15.00"),
		BulkShippingCharge: decimal.RequireFromString("10.00"),
		BulkQuantity:       10,
	}
	c := New(policy)
	product := testProducts()[4] // 10.00

	require.NoError(t, c.Add(product, 1, false))
	assertMoney(t, "15.00", c.ShippingPrice())
	assertMoney(t, "25.00", c.TotalPrice())

	require.NoError(t, c.Add(product, 9, false))
	assert.Equal(t, 10, c.TotalQuantity())
	assertMoney(t, "10.00", c.ShippingPrice())
	assertMoney(t, "110.00", c.TotalPrice())
}

func TestShippingExemptCart(t *testing.T) {
	policy := Policy{
		ShippingCharge:     decimal.RequireFromString("15.00"),
		BulkShippingCharge: decimal.RequireFromString("10.00"),
		BulkQuantity:       10,
	}
	c := New(policy)
	digital := &model.Product{ID: 9, Code: "PDF", Title: "Download",
		Price: decimal.RequireFromString("5.00"), Shipping: false}

	require.NoError(t, c.Add(digital, 3, false))
	assertMoney(t, "0.00", c.ShippingPrice())
	assertMoney(t, "15.00", c.TotalPrice())
}

type mapFinder map[string]*model.Product

func (f mapFinder) FindByCodes(_ context.Context, codes []string) ([]*model.Product, error) {
	var out []*model.Product
	for _, code := range codes {
		if p, ok := f[code]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestItemsJoin(t *testing.T) {
	c := New(testPolicy())
	products := testProducts()
	finder := mapFinder{}
	for _, p := range products[:2] {
		finder[p.Code] = p
	}

	require.NoError(t, c.Add(products[0], 1, false))
	require.NoError(t, c.Add(products[1], 2, false))

	items, err := c.Items(context.Background(), finder)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, products[0].Code, items[0].Product.Code)
	assert.Equal(t, 1, items[0].Quantity)
	assertMoney(t, "15.00", items[0].LineTotal)
	assert.Equal(t, 2, items[1].Quantity)
	assertMoney(t, "38.00", items[1].LineTotal)

	// the join is live: a retitled product shows up on the next iteration
	products[0].Title = "Renamed"
	items, err = c.Items(context.Background(), finder)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", items[0].Product.Title)
}

func TestItemsSkipsVanishedProducts(t *testing.T) {
	c := New(testPolicy())
	products := testProducts()
	finder := mapFinder{products[0].Code: products[0]}

	require.NoError(t, c.Add(products[0], 1, false))
	require.NoError(t, c.Add(products[1], 1, false))

	items, err := c.Items(context.Background(), finder)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
