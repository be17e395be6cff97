package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ywfa-shop/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	FindByID(ctx context.Context, orderID uint) (*model.Order, error)
	FindByCheckoutToken(ctx context.Context, token string) (*model.Order, error)
	GetOrderItems(ctx context.Context, orderID uint) ([]*model.OrderItem, error)

	// TransitionStatus applies a guarded status update: the write only
	// happens while the order is still in one of the from states, so
	// concurrent handlers cannot double-apply a transition. The returned
	// bool reports whether the row was actually updated.
	TransitionStatus(ctx context.Context, orderID uint, to model.OrderStatus, at time.Time, from ...model.OrderStatus) (bool, error)

	// CompletePayment marks the order paid and PAYMENT_COMPLETE in one
	// guarded write.
	CompletePayment(ctx context.Context, orderID uint, at time.Time, from ...model.OrderStatus) (bool, error)

	// DemoteExpired moves a stale PAYMENT_ACCEPTED order back to READY,
	// keyed on the timestamp the staleness was observed at so two
	// concurrent reads demote at most once.
	DemoteExpired(ctx context.Context, orderID uint, observedUpdatedAt time.Time, at time.Time) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID uint) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByCheckoutToken(ctx context.Context, token string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("checkout_token = ?", token).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) GetOrderItems(ctx context.Context, orderID uint) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("order_id = ?", orderID).
		Order("id").
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *orderRepoImpl) TransitionStatus(ctx context.Context, orderID uint, to model.OrderStatus, at time.Time, from ...model.OrderStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND order_status IN ?", orderID, from).
		Updates(map[string]interface{}{
			"order_status": to,
			"updated_at":   at,
		})

	return result.RowsAffected > 0, result.Error
}

func (r *orderRepoImpl) CompletePayment(ctx context.Context, orderID uint, at time.Time, from ...model.OrderStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND order_status IN ?", orderID, from).
		Updates(map[string]interface{}{
			"order_status": model.StatusPaymentComplete,
			"paid_status":  true,
			"updated_at":   at,
		})

	return result.RowsAffected > 0, result.Error
}

func (r *orderRepoImpl) DemoteExpired(ctx context.Context, orderID uint, observedUpdatedAt time.Time, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND order_status = ? AND updated_at = ?",
			orderID, model.StatusPaymentAccepted, observedUpdatedAt).
		Updates(map[string]interface{}{
			"order_status": model.StatusReady,
			"updated_at":   at,
		})

	return result.RowsAffected > 0, result.Error
}
