package models

import "time"

// WalletAccount 钱包账户（买家、卖家共用一套账户体系）
type WalletAccount struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (WalletAccount) TableName() string {
	return "wallet_accounts"
}

// WalletTransaction 钱包流水（reference 唯一，作为幂等键）
type WalletTransaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	OrderID       *uint     `gorm:"index" json:"order_id,omitempty"`
	Type          string    `gorm:"index;not null" json:"type"`
	Direction     string    `gorm:"type:varchar(10);not null" json:"direction"`
	Amount        Money     `gorm:"type:decimal(20,2);not null" json:"amount"`
	BalanceBefore Money     `gorm:"type:decimal(20,2);not null" json:"balance_before"`
	BalanceAfter  Money     `gorm:"type:decimal(20,2);not null" json:"balance_after"`
	Currency      string    `gorm:"type:varchar(10);not null" json:"currency"`
	Reference     string    `gorm:"uniqueIndex;not null" json:"reference"`
	Remark        string    `gorm:"type:varchar(255)" json:"remark,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
