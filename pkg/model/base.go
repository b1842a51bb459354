package model

import (
	"time"

	"gorm.io/gorm"
)

// Timestamps 旧系统表的 created_at / updated_at
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SoftDelete 软删除字段，gorm 查询时自动过滤已删除记录
type SoftDelete struct {
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}
