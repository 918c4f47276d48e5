package order

import (
	"context"

	"kopimatic/entities"

	"gorm.io/gorm"
)

type (
	OrderRepository interface {
		CreateOrder(ctx context.Context, order *entities.Order) error
		GetOrderByID(ctx context.Context, id string) (*entities.Order, error)
		GetOrders(ctx context.Context, machineID string, page, limit int) ([]*entities.Order, int64, error)
		UpdateOrder(ctx context.Context, order *entities.Order) error
		// TransitionStatus flips the order's status only when the current
		// status still matches expected, and reports whether the update won.
		// This is the idempotency gate for finalization.
		TransitionStatus(ctx context.Context, id, expected, next string) (bool, error)
	}

	orderRepository struct {
		db *gorm.DB
	}
)

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *entities.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id string) (*entities.Order, error) {
	var order entities.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetOrders(ctx context.Context, machineID string, page, limit int) ([]*entities.Order, int64, error) {
	var orders []*entities.Order
	var count int64
	offset := (page - 1) * limit

	query := r.db.WithContext(ctx)
	if machineID != "" {
		query = query.Where("machine_id = ?", machineID)
	}

	if err := query.Model(&entities.Order{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("ordered_at desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, count, nil
}

func (r *orderRepository) UpdateOrder(ctx context.Context, order *entities.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *orderRepository) TransitionStatus(ctx context.Context, id, expected, next string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
