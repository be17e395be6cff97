package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ywfa-shop/internal/client"
	"ywfa-shop/internal/dto"
	"ywfa-shop/internal/repository"
	"ywfa-shop/internal/service"
)

const applicationProblemJSON = "application/problem+json"

type StripeHandler struct {
	stripeService   service.StripeService
	orders          service.OrderService
	orderRepo       repository.OrderRepository
	stripePublicKey string
}

func NewStripeHandler(stripeService service.StripeService, orders service.OrderService, orderRepo repository.OrderRepository, stripePublicKey string) *StripeHandler {
	return &StripeHandler{
		stripeService:   stripeService,
		orders:          orders,
		orderRepo:       orderRepo,
		stripePublicKey: stripePublicKey,
	}
}

// PaymentPage returns the order summary and the provider public key for the
// client-side redirect. Reading the status here runs the accept-timeout
// reconciliation.
func (h *StripeHandler) PaymentPage(c echo.Context) error {
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

	return c.JSON(http.StatusOK, dto.PaymentPageView{
		Order:           orderView(order, len(items)),
		StripePublicKey: h.stripePublicKey,
	})
}

func problemResponse(c echo.Context, status int, message string) error {
	c.Response().Header().Set(echo.HeaderContentType, applicationProblemJSON)
	return c.JSON(status, dto.CreateSessionResponse{
		Status:  "false",
		Message: message,
	})
}

// CreateSession is the ajax endpoint behind the pay button: it validates
// the client-echoed amount against the order and opens the hosted-checkout
// session.
func (h *StripeHandler) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return problemResponse(c, http.StatusBadRequest, "invalid or obsolete information provided")
	}
	amount, err := decimal.NewFromString(req.OrderAmount)
	if err != nil {
		return problemResponse(c, http.StatusBadRequest, "invalid or obsolete information provided")
	}

	sessionID, err := h.stripeService.CreateSession(ctx, req.OrderID, amount)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrNotPayable):
		return problemResponse(c, http.StatusBadRequest, "invalid or obsolete information provided")
	default:
		// Provider/network failure: the order was not advanced, the user
		// can retry.
		c.Logger().Errorf("stripe create session: %v", err)
		return problemResponse(c, http.StatusBadGateway, "payment provider unavailable, please try again")
	}

	return c.JSON(http.StatusOK, dto.CreateSessionResponse{
		Status:    "true",
		SessionID: sessionID,
	})
}

func (h *StripeHandler) redirectParams(c echo.Context) (uint, string, bool) {
	orderID, err := strconv.ParseUint(c.Param("order_id"), 10, 64)
	if err != nil {
		return 0, "", false
	}
	return uint(orderID), c.Param("session_id"), true
}

// Success is the provider's success redirect. The path is untrusted, so
// unknown orders and conflicting states are logged and swallowed.
func (h *StripeHandler) Success(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, sessionID, ok := h.redirectParams(c)
	if ok {
		if err := h.stripeService.OnSuccessRedirect(ctx, orderID, sessionID); err != nil {
			c.Logger().Warnf("stripe success redirect for order %d: %v", orderID, err)
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Cancelled is the provider's cancel redirect, handled like Success.
func (h *StripeHandler) Cancelled(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, sessionID, ok := h.redirectParams(c)
	if ok {
		if err := h.stripeService.OnCancelRedirect(ctx, orderID, sessionID); err != nil {
			c.Logger().Warnf("stripe cancel redirect for order %d: %v", orderID, err)
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Webhook receives signed provider events. A bad signature is rejected
// before any state is touched; an unparseable payload is a bad request; an
// unknown order is swallowed with a warning.
func (h *StripeHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read payload")
	}
	signature := c.Request().Header.Get("Stripe-Signature")

	err = h.stripeService.HandleWebhook(ctx, payload, signature)
	switch {
	case err == nil:
	case errors.Is(err, client.ErrBadSignature):
		return echo.NewHTTPError(http.StatusNotAcceptable, "signature verification failed")
	case errors.Is(err, service.ErrBadPayload):
		return echo.NewHTTPError(http.StatusBadRequest, "malformed payload")
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.Logger().Warnf("stripe webhook for unknown order: %v", err)
	default:
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
