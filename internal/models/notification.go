package models

import "time"

// Notification 用户通知（发送失败只记日志，不阻塞订单迁移）
type Notification struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	Type      string     `gorm:"index;not null" json:"type"`
	Message   string     `gorm:"type:varchar(500);not null" json:"message"`
	Link      string     `gorm:"type:varchar(255)" json:"link,omitempty"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
