// Package cart implements the session-scoped shopping cart: an ephemeral
// line-item accumulator keyed by product code, with totals computed from an
// injected pricing policy.
package cart

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"ywfa-shop/internal/model"
)

var ErrNegativeQuantity = errors.New("cart quantity must not be negative")

// Policy is the site pricing policy the cart computes shipping and tax from.
type Policy struct {
	ShippingCharge     decimal.Decimal
	BulkShippingCharge decimal.Decimal
	BulkQuantity       int
	TaxRate            decimal.Decimal
}

// Line is one cart entry. UnitPrice and the shipping flag are snapshots
// taken when the product was first added; catalog changes during the
// session do not move them.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
	Shipping  bool
}

type Cart struct {
	Lines  map[string]Line
	Policy Policy

	modified bool
}

func New(policy Policy) *Cart {
	return &Cart{
		Lines:  make(map[string]Line),
		Policy: policy,
	}
}

// Add inserts or tops up the line for p. With replace the line quantity is
// set to quantity, otherwise it is incremented. A zero quantity is accepted
// and leaves a zero-quantity line in place.
func (c *Cart) Add(p *model.Product, quantity int, replace bool) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	line, ok := c.Lines[p.Code]
	if !ok {
		line = Line{Quantity: 0, UnitPrice: p.Price, Shipping: p.Shipping}
	}
	if replace {
		line.Quantity = quantity
	} else {
		line.Quantity += quantity
	}
	c.Lines[p.Code] = line
	c.modified = true
	return nil
}

// Remove takes quantity units of p out of the cart. A quantity of zero or
// less, or one at or above the current line quantity, deletes the line
// entirely. Removing an absent product is a no-op.
func (c *Cart) Remove(p *model.Product, quantity int) {
	line, ok := c.Lines[p.Code]
	if !ok {
		return
	}
	if quantity <= 0 || quantity >= line.Quantity {
		delete(c.Lines, p.Code)
	} else {
		line.Quantity -= quantity
		c.Lines[p.Code] = line
	}
	c.modified = true
}

// Clear empties the cart. Idempotent.
func (c *Cart) Clear() {
	c.Lines = make(map[string]Line)
	c.modified = true
}

func (c *Cart) Len() int {
	return len(c.Lines)
}

// Modified reports whether any mutating operation has happened since the
// cart was last loaded or flushed.
func (c *Cart) Modified() bool {
	return c.modified
}

// ResetModified clears the dirty flag after the cart has been persisted.
func (c *Cart) ResetModified() {
	c.modified = false
}

func (c *Cart) TotalQuantity() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// ItemsTotal is the sum of unit price times quantity over all lines,
// excluding shipping.
func (c *Cart) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// RequiresShipping reports whether any line carries a shipping charge.
func (c *Cart) RequiresShipping() bool {
	for _, line := range c.Lines {
		if line.Shipping {
			return true
		}
	}
	return false
}

// ShippingPrice is a step function of the total quantity: the flat charge
// below the bulk threshold, the bulk charge at or above it. Carts with no
// shippable line are exempt.
func (c *Cart) ShippingPrice() decimal.Decimal {
	if !c.RequiresShipping() {
		return decimal.Zero
	}
	if c.TotalQuantity() < c.Policy.BulkQuantity {
		return c.Policy.ShippingCharge
	}
	return c.Policy.BulkShippingCharge
}

// TotalPrice is the items total plus the shipping price.
func (c *Cart) TotalPrice() decimal.Decimal {
	return c.ItemsTotal().Add(c.ShippingPrice())
}

func (c *Cart) TaxRate() decimal.Decimal {
	return c.Policy.TaxRate
}

// Item is a cart line joined with its live catalog record for display.
type Item struct {
	Product   *model.Product
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// ProductFinder resolves product codes to live catalog records.
type ProductFinder interface {
	FindByCodes(ctx context.Context, codes []string) ([]*model.Product, error)
}

// Items joins the current lines with their live Product records, ordered by
// code. The join is recomputed on every call, so catalog changes between
// calls are visible, while unit prices stay frozen from add-time. Lines
// whose product has vanished from the catalog are skipped.
func (c *Cart) Items(ctx context.Context, finder ProductFinder) ([]Item, error) {
	if len(c.Lines) == 0 {
		return nil, nil
	}
	codes := make([]string, 0, len(c.Lines))
	for code := range c.Lines {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	products, err := finder.FindByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]*model.Product, len(products))
	for _, p := range products {
		byCode[p.Code] = p
	}

	items := make([]Item, 0, len(codes))
	for _, code := range codes {
		product, ok := byCode[code]
		if !ok {
			continue
		}
		line := c.Lines[code]
		items = append(items, Item{
			Product:   product,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return items, nil
}
