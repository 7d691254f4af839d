package constants

// 订单状态常量
const (
	OrderStatusPending          = "pending"
	OrderStatusAdminApproved    = "admin_approved"
	OrderStatusSellerApproved   = "seller_approved"
	OrderStatusInProgress       = "in_progress"
	OrderStatusReadyForDelivery = "ready_for_delivery"
	OrderStatusOutForDelivery   = "out_for_delivery"
	OrderStatusDelivered        = "delivered"
	OrderStatusCompleted        = "completed"
	OrderStatusCancelled        = "cancelled"
	OrderStatusSuspended        = "suspended"
)

// 议价审批状态常量
const (
	PriceApprovalNone     = "none"
	PriceApprovalPending  = "pending_approval"
	PriceApprovalApproved = "approved"
	PriceApprovalRejected = "rejected"
)

// 定金状态常量
const (
	DepositStatusUnpaid   = "unpaid"
	DepositStatusPaid     = "paid"
	DepositStatusRefunded = "refunded"
)

// 支付状态常量
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// 历史流水动作常量（每个状态迁移一条）
const (
	ActionApproveByAdmin         = "approve_by_admin"
	ActionApproveBySeller        = "approve_by_seller"
	ActionStartWork              = "start_work"
	ActionCompleteWork           = "complete_work"
	ActionPickUpByDelivery       = "pick_up_by_delivery"
	ActionMarkAsDelivered        = "mark_as_delivered"
	ActionMarkAsCompleted        = "mark_as_completed"
	ActionCancel                 = "cancel"
	ActionSuspend                = "suspend"
	ActionApproveProposedPrice   = "approve_proposed_price"
	ActionRejectProposedPrice    = "reject_proposed_price"
	ActionPaymentDeadlineExpired = "payment_deadline_expired"
)

// 操作者角色常量
const (
	ActorRoleBuyer    = "buyer"
	ActorRoleSeller   = "seller"
	ActorRoleAdmin    = "admin"
	ActorRoleDelivery = "delivery"
)

// 钱包交易类型常量
const (
	WalletTxnTypeSettlementCredit = "settlement_credit"
	WalletTxnTypeDepositForfeit   = "deposit_forfeit"
	WalletTxnTypeDepositRefund    = "deposit_refund"
	WalletTxnTypeRecharge         = "recharge"
	WalletTxnTypeAdminAdjust      = "admin_adjust"
)

// 钱包交易方向常量
const (
	WalletTxnDirectionIn  = "in"
	WalletTxnDirectionOut = "out"
)

// 通知类型常量
const (
	NotificationTypeRemainingPayment = "remaining_payment_due"
	NotificationTypeOrderSuspended   = "order_suspended"
	NotificationTypeDepositForfeited = "deposit_forfeited"
	NotificationTypeDepositRefunded  = "deposit_refunded"
	NotificationTypeOrderCompleted   = "order_completed"
)

// 队列常量
const (
	QueueDefault             = "default"
	TaskOrderPaymentDeadline = "order:payment_deadline"
	TaskNotificationDispatch = "notification:dispatch"
)

// 币种常量
const (
	SiteCurrencyDefault = "CNY"
)

// 暂停原因常量
const (
	SuspensionReasonCourier         = "courier_reported_issue"
	SuspensionReasonPaymentDeadline = "remaining_payment_deadline_expired"
)
