package repository

import (
	"context"

	"paychecked_admin/internal/domain/chargestatus/model"

	"gorm.io/gorm"
)

// OrderRepository 订单只读查询，查无资料时返回 gorm.ErrRecordNotFound
type OrderRepository interface {
	GetByID(ctx context.Context, orderID string) (*model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
