package models

import "time"

// OrderHistory 订单迁移流水（只追加，不修改不删除）
type OrderHistory struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	OrderID    uint      `gorm:"index;not null" json:"order_id"`
	Status     string    `gorm:"index;not null" json:"status"`            // 迁移后的状态
	ActionBy   *uint     `gorm:"index" json:"action_by,omitempty"`        // 操作者（系统动作为空）
	ActionType string    `gorm:"index;not null" json:"action_type"`       // 迁移动作名
	Note       string    `gorm:"type:varchar(500)" json:"note,omitempty"` // 备注
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (OrderHistory) TableName() string {
	return "order_histories"
}
