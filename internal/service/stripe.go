package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"ywfa-shop/internal/client"
	"ywfa-shop/internal/model"
	"ywfa-shop/internal/repository"
)

var (
	// ErrAmountMismatch rejects a session create whose client-supplied
	// amount disagrees with the persisted order total.
	ErrAmountMismatch = errors.New("supplied amount does not match order total")

	ErrNotPayable = errors.New("order cannot accept payment")

	ErrBadPayload = errors.New("malformed webhook payload")
)

// StripeService bridges orders to the provider's hosted-checkout protocol:
// session creation, the success/cancel redirects, and the signed webhook.
type StripeService interface {
	CreateSession(ctx context.Context, orderID uint, clientAmount decimal.Decimal) (string, error)
	OnSuccessRedirect(ctx context.Context, orderID uint, sessionID string) error
	OnCancelRedirect(ctx context.Context, orderID uint, sessionID string) error
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error
}

type stripeServiceImpl struct {
	stripeClient     client.StripeClient
	serviceBaseUrl   string
	currency         string
	orders           OrderService
	orderRepo        repository.OrderRepository
	paymentEventRepo repository.PaymentEventRepository
	webhookEventRepo repository.WebhookEventRepository
}

func NewStripeService(
	stripeClient client.StripeClient,
	serviceBaseUrl string,
	currency string,
	orders OrderService,
	orderRepo repository.OrderRepository,
	paymentEventRepo repository.PaymentEventRepository,
	webhookEventRepo repository.WebhookEventRepository,
) StripeService {
	return &stripeServiceImpl{
		stripeClient:     stripeClient,
		serviceBaseUrl:   serviceBaseUrl,
		currency:         currency,
		orders:           orders,
		orderRepo:        orderRepo,
		paymentEventRepo: paymentEventRepo,
		webhookEventRepo: webhookEventRepo,
	}
}

// CreateSession opens a hosted-checkout session for the order. The order is
// advanced to PAYMENT_ACCEPTED and a CREATED event logged only after the
// provider call succeeds; a provider failure leaves the order untouched so
// the user can retry.
func (s *stripeServiceImpl) CreateSession(ctx context.Context, orderID uint, clientAmount decimal.Decimal) (string, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("find order: %w", err)
	}
	if _, err := s.orders.ReconcileStatus(ctx, order); err != nil {
		return "", fmt.Errorf("reconcile order status: %w", err)
	}

	if !order.TotalPrice.Equal(clientAmount) {
		return "", ErrAmountMismatch
	}
	if !order.CanAcceptPayment() {
		return "", fmt.Errorf("%w: status %s", ErrNotPayable, order.OrderStatus)
	}

	items, err := s.orderRepo.GetOrderItems(ctx, order.ID)
	if err != nil {
		return "", fmt.Errorf("get order items: %w", err)
	}

	lineItems := make([]client.LineItem, 0, len(items)+2)
	for _, item := range items {
		lineItems = append(lineItems, client.LineItem{
			Name:       item.Product.Title,
			Quantity:   item.Quantity,
			UnitAmount: toCents(item.Price),
			Currency:   s.currency,
		})
	}
	if order.Shipping.IsPositive() {
		lineItems = append(lineItems, client.LineItem{
			Name:       "Shipping and handling",
			Quantity:   1,
			UnitAmount: toCents(order.Shipping),
			Currency:   s.currency,
		})
	}
	if order.Tax.IsPositive() {
		lineItems = append(lineItems, client.LineItem{
			Name:       "GST",
			Quantity:   1,
			UnitAmount: toCents(order.Tax),
			Currency:   s.currency,
		})
	}

	session, err := s.stripeClient.CreateCheckoutSession(ctx, &client.CheckoutSessionParams{
		SuccessURL:        s.callbackURL("stripe-success", order.ID),
		CancelURL:         s.callbackURL("stripe-cancelled", order.ID),
		ClientReferenceID: strconv.FormatUint(uint64(order.ID), 10),
		LineItems:         lineItems,
	})
	if err != nil {
		return "", fmt.Errorf("stripe api create session: %w", err)
	}

	if err := s.orders.Transition(ctx, order, model.StatusPaymentAccepted); err != nil {
		return "", err
	}
	if err := s.paymentEventRepo.Record(ctx, order, session.ID, model.MilestoneCreated, order.TotalPrice, session.Raw); err != nil {
		return "", fmt.Errorf("record payment event: %w", err)
	}

	return session.ID, nil
}

// OnSuccessRedirect handles the user returning from a completed hosted
// checkout. Idempotent: a second delivery, or losing the race to another
// handler for the same event, is a silent no-op.
func (s *stripeServiceImpl) OnSuccessRedirect(ctx context.Context, orderID uint, sessionID string) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("find order: %w", err)
	}
	if _, err := s.orders.ReconcileStatus(ctx, order); err != nil {
		return err
	}
	if order.PaidOrCancelled() {
		return nil
	}

	err = s.orders.Transition(ctx, order, model.StatusPaymentProcessing)
	if errors.Is(err, ErrStateConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	return s.paymentEventRepo.Record(ctx, order, sessionID, model.MilestoneAccepted, decimal.Zero, "")
}

// OnCancelRedirect handles the user abandoning the hosted checkout.
// Idempotent in the same way as OnSuccessRedirect.
func (s *stripeServiceImpl) OnCancelRedirect(ctx context.Context, orderID uint, sessionID string) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("find order: %w", err)
	}
	if _, err := s.orders.ReconcileStatus(ctx, order); err != nil {
		return err
	}
	if order.PaidOrCancelled() {
		return nil
	}

	err = s.orders.Transition(ctx, order, model.StatusCancelled)
	if errors.Is(err, ErrStateConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	return s.paymentEventRepo.Record(ctx, order, sessionID, model.MilestoneCancelled, decimal.Zero, "")
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
		} `json:"object"`
	} `json:"data"`
}

// HandleWebhook verifies and applies a signed provider event. Redelivered
// events are deduplicated by event id, and a completed-checkout event for
// an order that already settled is a no-op.
func (s *stripeServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	if err := s.stripeClient.VerifyWebhookSignature(payload, signatureHeader); err != nil {
		return err
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if event.ID == "" || event.Type == "" {
		return fmt.Errorf("%w: missing event id or type", ErrBadPayload)
	}

	seen, err := s.webhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("check webhook event: %w", err)
	}
	if seen {
		return nil
	}

	if event.Type == "checkout.session.completed" {
		if err := s.handleCheckoutCompleted(ctx, &event, payload); err != nil {
			return err
		}
	}

	return s.webhookEventRepo.MarkProcessed(ctx, event.ID, event.Type)
}

func (s *stripeServiceImpl) handleCheckoutCompleted(ctx context.Context, event *stripeEvent, payload []byte) error {
	ref := event.Data.Object.ClientReferenceID
	if ref == "" {
		return fmt.Errorf("%w: missing client_reference_id", ErrBadPayload)
	}
	orderID, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad client_reference_id %q", ErrBadPayload, ref)
	}

	order, err := s.orderRepo.FindByID(ctx, uint(orderID))
	if err != nil {
		return fmt.Errorf("find order: %w", err)
	}

	err = s.orders.CompletePayment(ctx, order)
	if errors.Is(err, ErrStateConflict) {
		// Already settled (or cancelled); nothing more to apply.
		return nil
	}
	if err != nil {
		return err
	}

	return s.paymentEventRepo.Record(ctx, order, event.Data.Object.ID, model.MilestoneConfirmed, decimal.Zero, string(payload))
}

func (s *stripeServiceImpl) callbackURL(responseType string, orderID uint) string {
	// {CHECKOUT_SESSION_ID} is substituted by the provider on redirect.
	return fmt.Sprintf("%s/shop/%s/%d/{CHECKOUT_SESSION_ID}", s.serviceBaseUrl, responseType, orderID)
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
