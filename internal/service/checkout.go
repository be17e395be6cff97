package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ywfa-shop/internal/cart"
	"ywfa-shop/internal/model"
	"ywfa-shop/internal/repository"
)

var (
	ErrEmptyCart       = errors.New("cart has no items")
	ErrProductsChanged = errors.New("some cart products are no longer available")
)

type Customer struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
}

// CheckoutService materializes a cart snapshot into exactly one persisted
// Order plus its OrderItems.
type CheckoutService interface {
	// PlaceOrder refuses an empty cart, writes the Order and all of its
	// items in one transaction, and is idempotent per checkout token: a
	// retried submission returns the order the token already created.
	// The caller clears the cart only after this returns successfully.
	PlaceOrder(ctx context.Context, crt *cart.Cart, customer Customer, token string) (*model.Order, error)
}

type checkoutServiceImpl struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
}

func NewCheckoutService(db *gorm.DB, orderRepo repository.OrderRepository, productRepo repository.ProductRepository) CheckoutService {
	return &checkoutServiceImpl{
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
	}
}

func (s *checkoutServiceImpl) PlaceOrder(ctx context.Context, crt *cart.Cart, customer Customer, token string) (*model.Order, error) {
	if crt.Len() == 0 {
		return nil, ErrEmptyCart
	}

	existing, err := s.orderRepo.FindByCheckoutToken(ctx, token)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up checkout token: %w", err)
	}

	items, err := crt.Items(ctx, s.productRepo)
	if err != nil {
		return nil, fmt.Errorf("resolve cart products: %w", err)
	}
	if len(items) != crt.Len() {
		return nil, ErrProductsChanged
	}

	total := crt.TotalPrice()
	tax := decimal.Zero
	if crt.TaxRate().IsPositive() {
		tax = total.Div(crt.TaxRate().Add(decimal.NewFromInt(1))).Round(2)
	}

	order := &model.Order{
		FirstName:     customer.FirstName,
		LastName:      customer.LastName,
		Email:         customer.Email,
		Phone:         customer.Phone,
		Address:       customer.Address,
		City:          customer.City,
		PostalCode:    customer.PostalCode,
		OrderStatus:   model.StatusNew,
		Shipping:      crt.ShippingPrice(),
		Tax:           tax,
		TotalPrice:    total,
		CheckoutToken: token,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order in db: %w", err)
		}

		orderItems := make([]*model.OrderItem, len(items))
		for i, item := range items {
			orderItems[i] = &model.OrderItem{
				OrderID:   order.ID,
				ProductID: item.Product.ID,
				Price:     item.UnitPrice,
				Quantity:  item.Quantity,
			}
		}
		if err := s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
			return fmt.Errorf("store order items in db: %w", err)
		}
		return nil
	})
	if err != nil {
		// A concurrent submission with the same token may have won the
		// unique index; hand back its order instead of failing.
		if existing, ferr := s.orderRepo.FindByCheckoutToken(ctx, token); ferr == nil {
			return existing, nil
		}
		return nil, err
	}

	return order, nil
}
