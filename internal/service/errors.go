package service

import "errors"

// 订单类错误
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderFetchFailed   = errors.New("order fetch failed")
	ErrOrderUpdateFailed  = errors.New("order update failed")
	ErrInvalidTransition  = errors.New("invalid order transition")
	ErrMissingRequired    = errors.New("missing required field")
	ErrCancelNotAllowed   = errors.New("cancel not allowed for current status")
	ErrPriceApprovalState = errors.New("price approval not pending")
	ErrHistoryAppendFail  = errors.New("order history append failed")
)

// 结算类错误
var (
	ErrSettlementInvalid = errors.New("settlement input invalid")
)

// 钱包类错误
var (
	ErrWalletAccountNotFound         = errors.New("wallet account not found")
	ErrWalletAccountCreateFailed     = errors.New("wallet account create failed")
	ErrWalletInvalidAmount           = errors.New("wallet amount invalid")
	ErrWalletInsufficientBalance     = errors.New("wallet balance insufficient")
	ErrWalletAccountUpdateFailed     = errors.New("wallet account update failed")
	ErrWalletTransactionCreateFailed = errors.New("wallet transaction create failed")
)

// 其他
var (
	ErrNotificationCreateFailed = errors.New("notification create failed")
	ErrUserNotFound             = errors.New("user not found")
	ErrCityNotFound             = errors.New("city not found")
)
