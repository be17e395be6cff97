package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ywfa-shop/internal/model"
)

// PaymentEventRepository appends to the payment audit trail. There is no
// update or delete: the log is strictly additive.
type PaymentEventRepository interface {
	Record(ctx context.Context, order *model.Order, sessionID string, milestone model.Milestone, amount decimal.Decimal, sessionData string) error
	ListByOrder(ctx context.Context, orderID uint) ([]*model.PaymentEvent, error)
}

type paymentEventRepoImpl struct {
	db *gorm.DB
}

func NewPaymentEventRepository(db *gorm.DB) PaymentEventRepository {
	return &paymentEventRepoImpl{
		db: db,
	}
}

func (r *paymentEventRepoImpl) Record(ctx context.Context, order *model.Order, sessionID string, milestone model.Milestone, amount decimal.Decimal, sessionData string) error {
	if amount.IsZero() {
		amount = order.TotalPrice
	}
	return r.db.WithContext(ctx).Create(&model.PaymentEvent{
		OrderID:     order.ID,
		SessionID:   sessionID,
		Amount:      amount,
		Milestone:   milestone,
		SessionData: sessionData,
	}).Error
}

func (r *paymentEventRepoImpl) ListByOrder(ctx context.Context, orderID uint) ([]*model.PaymentEvent, error) {
	var events []*model.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC, milestone").
		Find(&events).Error

	if err != nil {
		return nil, err
	}

	return events, nil
}
