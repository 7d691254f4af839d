package models

import "time"

// City 城市（平台佣金默认比例按城市配置）
type City struct {
	ID                       uint      `gorm:"primarykey" json:"id"`
	Name                     string    `gorm:"uniqueIndex;not null" json:"name"`
	DefaultCommissionPercent Money     `gorm:"type:decimal(20,2);not null;default:0" json:"default_commission_percent"`
	DeliveryFee              Money     `gorm:"type:decimal(20,2);not null;default:0" json:"delivery_fee"`
	IsActive                 bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// TableName 指定表名
func (City) TableName() string {
	return "cities"
}
