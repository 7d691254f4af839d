package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	BuyerID     uint
	SellerID    uint
	Status      string
	OrderNo     string
	CityID      uint
	OnlyLate    bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WalletTransactionListFilter 查询钱包流水的过滤条件
type WalletTransactionListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	OrderID     uint
	Type        string
	Direction   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// NotificationListFilter 查询通知列表的过滤条件
type NotificationListFilter struct {
	Page       int
	PageSize   int
	UserID     uint
	Type       string
	OnlyUnread bool
}
