package models

import (
	"time"

	"gorm.io/gorm"
)

// User 平台用户（买家/卖家/配送员统一身份记录，引擎只读引用）
type User struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Email       string         `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName string         `gorm:"type:varchar(100)" json:"display_name,omitempty"`
	Role        string         `gorm:"index;not null" json:"role"`
	CityID      *uint          `gorm:"index" json:"city_id,omitempty"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
