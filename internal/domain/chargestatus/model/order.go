package model

import (
	"time"

	baseModel "paychecked_admin/pkg/model"

	"gorm.io/gorm"
)

// Order 订单，只读取反查所需的字段
type Order struct {
	ID            string `gorm:"primaryKey;type:varchar(28)" json:"id"`
	StoreID       string `gorm:"column:storeId;type:varchar(6);index" json:"storeId"`
	PayableAmount int    `gorm:"not null;default:0" json:"payableAmount"` // 应付金额，最小货币单位
	PayType       string `gorm:"type:varchar(15)" json:"payType"`
	baseModel.Timestamps
	baseModel.SoftDelete
}

func (Order) TableName() string {
	return "orders"
}

// OrderStatus 订单状态事件
type OrderStatus struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   string         `gorm:"type:varchar(28);index;not null" json:"orderId"`
	Status    int            `gorm:"not null;default:0" json:"status"`   // 0 尚未付款, 1 付款完成, 2 已退货
	Content   *string        `gorm:"type:text" json:"content,omitempty"` // 附属讯息 JSON
	Operator  *string        `gorm:"type:varchar(50)" json:"operator,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"createdAt"` // 旧表只有 created_at
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}

func (OrderStatus) TableName() string {
	return "order_statuses"
}

const (
	StatusUnpaid   = 0
	StatusPaid     = 1
	StatusReturned = 2
)
