package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"ywfa-shop/internal/cart"
	"ywfa-shop/internal/dto"
	"ywfa-shop/internal/repository"
	"ywfa-shop/internal/service"
)

// The largest quantity a single form submission may add or remove.
const maxItemQuantity = 100

type CartHandler struct {
	store       *cart.Store
	productRepo repository.ProductRepository
	checkout    service.CheckoutService
}

func NewCartHandler(store *cart.Store, productRepo repository.ProductRepository, checkout service.CheckoutService) *CartHandler {
	return &CartHandler{
		store:       store,
		productRepo: productRepo,
		checkout:    checkout,
	}
}

func redirectNext(c echo.Context, next, fallback string) error {
	if next == "" || !strings.HasPrefix(next, "/") {
		next = fallback
	}
	return c.Redirect(http.StatusFound, next)
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) > 16 {
		code = code[:16]
	}
	return code
}

// GetCart renders the current cart: each line joined with its live product
// record, plus the computed totals.
func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	crt, err := h.store.Load(c)
	if err != nil {
		return err
	}

	items, err := crt.Items(ctx, h.productRepo)
	if err != nil {
		return err
	}

	view := dto.CartView{
		Items:         make([]dto.CartItemView, len(items)),
		TotalQuantity: crt.TotalQuantity(),
		ShippingPrice: crt.ShippingPrice().StringFixed(2),
		TotalPrice:    crt.TotalPrice().StringFixed(2),
		Messages:      cart.Flashes(c),
	}
	for i, item := range items {
		view.Items[i] = dto.CartItemView{
			ProductCode:  item.Product.Code,
			ProductTitle: item.Product.Title,
			UnitPrice:    item.UnitPrice.StringFixed(2),
			Quantity:     item.Quantity,
			LineTotal:    item.LineTotal.StringFixed(2),
		}
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	quantity := req.ProductQuantity
	if quantity < 1 {
		quantity = 1
	}
	if quantity > maxItemQuantity {
		cart.Flash(c, "Invalid quantity")
		return redirectNext(c, req.Next, "/shop/products")
	}

	product, err := h.productRepo.FindByCode(ctx, normalizeCode(req.ProductCode))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no such product")
	}
	if err != nil {
		return err
	}

	crt, err := h.store.Load(c)
	if err != nil {
		return err
	}
	if err := crt.Add(product, quantity, false); err != nil {
		cart.Flash(c, err.Error())
		return redirectNext(c, req.Next, "/shop/products")
	}
	if err := h.store.Save(c, crt); err != nil {
		return err
	}

	cart.Flash(c, fmt.Sprintf("%s %s (%d) added to cart.", product.Code, product.Title, quantity))
	return redirectNext(c, req.Next, "/shop/products")
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	product, err := h.productRepo.FindByCode(ctx, normalizeCode(req.ProductCode))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no such product")
	}
	if err != nil {
		return err
	}

	crt, err := h.store.Load(c)
	if err != nil {
		return err
	}
	// Quantity zero or absent removes the line outright.
	crt.Remove(product, req.ProductQuantity)
	if err := h.store.Save(c, crt); err != nil {
		return err
	}

	cart.Flash(c, fmt.Sprintf("%s %s (%d) removed from cart.", product.Code, product.Title, req.ProductQuantity))
	return redirectNext(c, req.Next, "/shop/cart")
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	var req dto.CartItemRequest
	_ = c.Bind(&req)

	crt, err := h.store.Load(c)
	if err != nil {
		return err
	}
	crt.Clear()
	if err := h.store.Save(c, crt); err != nil {
		return err
	}

	cart.Flash(c, "All products removed from your shopping cart.")
	return redirectNext(c, req.Next, "/shop/products")
}

// CreateOrder validates the cart is non-empty and redirects to the checkout
// form, minting the session's checkout token so a double-submitted form
// resolves to a single order.
func (h *CartHandler) CreateOrder(c echo.Context) error {
	var req dto.CartItemRequest
	_ = c.Bind(&req)

	crt, err := h.store.Load(c)
	if err != nil {
		return err
	}
	if crt.Len() < 1 {
		cart.Flash(c, "There are no products in your shopping cart.")
		return redirectNext(c, req.Next, "/shop/products")
	}

	if _, err := h.store.CheckoutToken(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/shop/order")
}

// OrderForm returns the data the checkout form renders from.
func (h *CartHandler) OrderForm(c echo.Context) error {
	return h.GetCart(c)
}

func validateCustomer(req *dto.OrderRequest) []string {
	var problems []string
	require := func(value, label string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, label+" is required")
		}
	}
	require(req.FirstName, "first name")
	require(req.LastName, "last name")
	require(req.Email, "email")
	require(req.Address, "address")
	require(req.City, "city")
	require(req.PostalCode, "postal code")
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		problems = append(problems, "email is not valid")
	}
	return problems
}

// SubmitOrder accepts the checkout form, materializes the order, clears the
// cart, and redirects to the payment page.
func (h *CartHandler) SubmitOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.OrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if problems := validateCustomer(&req); len(problems) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, strings.Join(problems, "; "))
	}

	crt, err := h.store.Load(c)
	if err != nil {
		return err
	}
	token, err := h.store.CheckoutToken(c)
	if err != nil {
		return err
	}

	order, err := h.checkout.PlaceOrder(ctx, crt, service.Customer{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
	}, token)
	if errors.Is(err, service.ErrEmptyCart) {
		cart.Flash(c, "There are no products in your shopping cart.")
		return c.Redirect(http.StatusFound, "/shop/products")
	}
	if errors.Is(err, service.ErrProductsChanged) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}

	// The cart is cleared only once the order and its items have been
	// committed.
	crt.Clear()
	if err := h.store.Save(c, crt); err != nil {
		return err
	}
	if err := h.store.RotateCheckoutToken(c); err != nil {
		return err
	}

	cart.Flash(c, "Your order has been successfully created.")
	return c.Redirect(http.StatusFound, fmt.Sprintf("/shop/payment/%d", order.ID))
}
