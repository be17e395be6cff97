package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"ywfa-shop/internal/cart"
	"ywfa-shop/internal/dto"
	"ywfa-shop/internal/model"
	"ywfa-shop/internal/repository"
	"ywfa-shop/internal/service"
)

type ShopHandler struct {
	productRepo repository.ProductRepository
	orders      service.OrderService
	orderRepo   repository.OrderRepository
}

func NewShopHandler(productRepo repository.ProductRepository, orders service.OrderService, orderRepo repository.OrderRepository) *ShopHandler {
	return &ShopHandler{
		productRepo: productRepo,
		orders:      orders,
		orderRepo:   orderRepo,
	}
}

func productView(p *model.Product) dto.ProductView {
	return dto.ProductView{
		Code:      p.Code,
		Title:     p.Title,
		Slug:      p.Slug,
		Detail:    p.Detail,
		Price:     p.Price.StringFixed(2),
		Shipping:  p.Shipping,
		Available: p.Available,
	}
}

// ListProducts returns available products, optionally filtered by the
// category query parameter. An unknown category falls back to the full
// list with a warning, matching the browsing behavior of the site.
func (h *ShopHandler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	categorySlug := c.QueryParam("category")
	products, err := h.productRepo.ListAvailable(ctx, categorySlug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart.Flash(c, "Unknown category '"+categorySlug+"'")
		categorySlug = ""
		products, err = h.productRepo.ListAvailable(ctx, "")
	}
	if err != nil {
		return err
	}

	view := dto.ProductListView{
		Category: categorySlug,
		Products: make([]dto.ProductView, len(products)),
		Messages: cart.Flashes(c),
	}
	for i, p := range products {
		view.Products[i] = productView(p)
	}
	return c.JSON(http.StatusOK, view)
}

// GetProduct returns one product by slug. Unknown slugs redirect back to
// the product list with a flash warning.
func (h *ShopHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")

	product, err := h.productRepo.FindBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart.Flash(c, "Unknown product '"+slug+"'")
		return c.Redirect(http.StatusFound, "/shop/products")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, productView(product))
}

func orderView(order *model.Order, totalItems int) dto.OrderView {
	return dto.OrderView{
		OrderID:    order.ID,
		Name:       order.Name(),
		Email:      order.Email,
		Status:     order.OrderStatus.String(),
		Paid:       order.PaidStatus,
		Shipping:   order.Shipping.StringFixed(2),
		Tax:        order.Tax.StringFixed(2),
		TotalPrice: order.TotalPrice.StringFixed(2),
		TotalItems: totalItems,
	}
}

// OrderDetail is the trusted order lookup: an unknown id is a real 404
// here, unlike the provider-facing redirect paths.
func (h *ShopHandler) OrderDetail(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := strconv.ParseUint(c.Param("orderid"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no such order")
	}

	order, err := h.orders.Get(ctx, uint(orderID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no such order")
	}
	if err != nil {
		return err
	}

	if _, err := h.orders.ReconcileStatus(ctx, order); err != nil {
		return err
	}

	items, err := h.orderRepo.GetOrderItems(ctx, order.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, orderView(order, len(items)))
}
