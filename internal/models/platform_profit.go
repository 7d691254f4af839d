package models

import "time"

// PlatformProfit 平台佣金审计记录（非关键遥测，写入失败不回滚订单完成）
type PlatformProfit struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	OrderID           uint      `gorm:"index;not null" json:"order_id"`
	CommissionPercent Money     `gorm:"type:decimal(20,2);not null;default:0" json:"commission_percent"`
	Amount            Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`
	Currency          string    `gorm:"type:varchar(10);not null" json:"currency"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (PlatformProfit) TableName() string {
	return "platform_profits"
}
