package repository

import (
	"context"

	"paychecked_admin/internal/domain/chargestatus/model"

	"gorm.io/gorm"
)

// OrderStatusRepository 订单状态只读查询
type OrderStatusRepository interface {
	// GetByOrderID 取该订单指定状态的最新一笔纪录
	GetByOrderID(ctx context.Context, orderID string, status int) (*model.OrderStatus, error)
}

type orderStatusRepository struct {
	db *gorm.DB
}

func NewOrderStatusRepository(db *gorm.DB) OrderStatusRepository {
	return &orderStatusRepository{db: db}
}

func (r *orderStatusRepository) GetByOrderID(ctx context.Context, orderID string, status int) (*model.OrderStatus, error) {
	var record model.OrderStatus
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, status).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
