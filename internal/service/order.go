package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ywfa-shop/internal/model"
	"ywfa-shop/internal/repository"
)

var (
	// ErrIllegalTransition reports a status move outside the transition
	// table.
	ErrIllegalTransition = errors.New("illegal order status transition")

	// ErrStateConflict reports a transition that lost a race to a
	// concurrent handler and is no longer applicable.
	ErrStateConflict = errors.New("order status changed concurrently")
)

// transitions is the legal target set per state. CANCELLED and COMPLETED
// are terminal. READY -> PAYMENT_PROCESSING covers the success redirect
// arriving after an accept-timeout demotion.
var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.StatusNew:               {model.StatusReady, model.StatusPaymentAccepted, model.StatusCancelled},
	model.StatusReady:             {model.StatusPaymentAccepted, model.StatusPaymentProcessing, model.StatusCancelled},
	model.StatusPaymentAccepted:   {model.StatusReady, model.StatusPaymentProcessing, model.StatusPaymentComplete, model.StatusCancelled},
	model.StatusPaymentProcessing: {model.StatusPaymentComplete},
	model.StatusPaymentComplete:   {model.StatusDispatched},
	model.StatusDispatched:        {model.StatusCompleted},
}

func legalTransition(from, to model.OrderStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// OrderService owns the order status state machine: guarded transitions,
// payment completion, and the lazy accept-timeout reconciliation.
type OrderService interface {
	Get(ctx context.Context, orderID uint) (*model.Order, error)

	// Transition moves order to the target state, validating against the
	// transition table and re-checking the guard under a conditional
	// update. On success the order struct reflects the new state.
	Transition(ctx context.Context, order *model.Order, to model.OrderStatus) error

	// CompletePayment advances the order to PAYMENT_COMPLETE and sets the
	// paid flag in one guarded write.
	CompletePayment(ctx context.Context, order *model.Order) error

	// ReconcileStatus demotes an order stuck in PAYMENT_ACCEPTED past the
	// accept timeout back to READY, refreshing its update timestamp. This
	// is the one status read with a write side effect, and it applies at
	// most once per expiry.
	ReconcileStatus(ctx context.Context, order *model.Order) (model.OrderStatus, error)
}

type orderServiceImpl struct {
	orderRepo     repository.OrderRepository
	acceptTimeout time.Duration
	now           func() time.Time
}

func NewOrderService(orderRepo repository.OrderRepository, acceptTimeout time.Duration) OrderService {
	return &orderServiceImpl{
		orderRepo:     orderRepo,
		acceptTimeout: acceptTimeout,
		now:           time.Now,
	}
}

func (s *orderServiceImpl) Get(ctx context.Context, orderID uint) (*model.Order, error) {
	return s.orderRepo.FindByID(ctx, orderID)
}

func (s *orderServiceImpl) Transition(ctx context.Context, order *model.Order, to model.OrderStatus) error {
	from := order.OrderStatus
	if !legalTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}

	at := s.now()
	applied, err := s.orderRepo.TransitionStatus(ctx, order.ID, to, at, from)
	if err != nil {
		return err
	}
	if !applied {
		// Lost a race. Re-read, re-check the guard once, then give up.
		fresh, err := s.orderRepo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		order.OrderStatus = fresh.OrderStatus
		order.UpdatedAt = fresh.UpdatedAt
		if !legalTransition(fresh.OrderStatus, to) {
			return fmt.Errorf("%w: %s -> %s", ErrStateConflict, fresh.OrderStatus, to)
		}
		applied, err = s.orderRepo.TransitionStatus(ctx, order.ID, to, at, fresh.OrderStatus)
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("%w: %s -> %s", ErrStateConflict, fresh.OrderStatus, to)
		}
	}

	order.OrderStatus = to
	order.UpdatedAt = at
	return nil
}

func (s *orderServiceImpl) CompletePayment(ctx context.Context, order *model.Order) error {
	at := s.now()
	applied, err := s.orderRepo.CompletePayment(ctx, order.ID, at,
		model.StatusPaymentAccepted, model.StatusPaymentProcessing)
	if err != nil {
		return err
	}
	if !applied {
		fresh, err := s.orderRepo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		order.OrderStatus = fresh.OrderStatus
		order.PaidStatus = fresh.PaidStatus
		order.UpdatedAt = fresh.UpdatedAt
		return fmt.Errorf("%w: %s -> %s", ErrStateConflict, fresh.OrderStatus, model.StatusPaymentComplete)
	}

	order.OrderStatus = model.StatusPaymentComplete
	order.PaidStatus = true
	order.UpdatedAt = at
	return nil
}

func (s *orderServiceImpl) ReconcileStatus(ctx context.Context, order *model.Order) (model.OrderStatus, error) {
	if order.OrderStatus != model.StatusPaymentAccepted {
		return order.OrderStatus, nil
	}

	at := s.now()
	expiresAt := order.UpdatedAt.Add(s.acceptTimeout)
	if !at.After(expiresAt) {
		return order.OrderStatus, nil
	}

	applied, err := s.orderRepo.DemoteExpired(ctx, order.ID, order.UpdatedAt, at)
	if err != nil {
		return order.OrderStatus, err
	}
	if applied {
		order.OrderStatus = model.StatusReady
		order.UpdatedAt = at
		return order.OrderStatus, nil
	}

	// Someone else moved the order first; pick up their state.
	fresh, err := s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		return order.OrderStatus, err
	}
	order.OrderStatus = fresh.OrderStatus
	order.UpdatedAt = fresh.UpdatedAt
	return order.OrderStatus, nil
}
