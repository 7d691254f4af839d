package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单聚合根：全部生命周期、支付与配送状态都落在这一行上
type Order struct {
	ID      uint   `gorm:"primarykey" json:"id"`                 // 主键
	OrderNo string `gorm:"uniqueIndex;not null" json:"order_no"` // 订单编号

	// 参与方
	BuyerID          uint  `gorm:"index;not null" json:"buyer_id"`            // 买家ID
	SellerID         uint  `gorm:"index;not null" json:"seller_id"`           // 卖家ID
	DeliveryPersonID *uint `gorm:"index" json:"delivery_person_id,omitempty"` // 配送员ID
	PickupPersonID   *uint `gorm:"index" json:"pickup_person_id,omitempty"`   // 取件员ID
	CityID           *uint `gorm:"index" json:"city_id,omitempty"`            // 城市ID（佣金默认值来源）

	// 状态（仅允许通过迁移操作修改）
	Status         string `gorm:"index;not null" json:"status"`                       // 当前状态
	PreviousStatus string `gorm:"type:varchar(40)" json:"previous_status,omitempty"`  // 尾款重审前的状态
	Currency       string `gorm:"not null" json:"currency"`                           // 币种
	NextActionHint string `gorm:"type:varchar(60)" json:"next_action_hint,omitempty"` // 下一步动作提示

	// 价格
	TotalPrice                Money  `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"`          // 基础价（结算口径）
	BuyerProposedPrice        *Money `gorm:"type:decimal(20,2)" json:"buyer_proposed_price,omitempty"`          // 买家出价（议价服务单）
	PriceApprovalStatus       string `gorm:"type:varchar(30);not null;default:none" json:"price_approval_status"` // 议价审批状态
	DeliveryFee               Money  `gorm:"type:decimal(20,2);not null;default:0" json:"delivery_fee"`         // 配送费
	CommissionPercentOverride *Money `gorm:"type:decimal(20,2)" json:"commission_percent_override,omitempty"`   // 单独约定的佣金比例

	// 定金与尾款
	RequiresDeposit       bool   `gorm:"not null;default:false" json:"requires_deposit"`                       // 是否需要定金
	DepositAmount         Money  `gorm:"type:decimal(20,2);not null;default:0" json:"deposit_amount"`          // 定金金额
	DepositStatus         string `gorm:"type:varchar(20);not null;default:unpaid" json:"deposit_status"`       // 定金状态
	RemainingPaymentProof string `gorm:"type:varchar(255)" json:"remaining_payment_proof,omitempty"`           // 尾款凭证
	PaymentProof          string `gorm:"type:varchar(255)" json:"payment_proof,omitempty"`                     // 全款凭证
	PaymentStatus         string `gorm:"type:varchar(20);not null;default:unpaid" json:"payment_status"`       // 支付状态
	IsCashOnDelivery      bool   `gorm:"not null;default:false" json:"is_cash_on_delivery"`                    // 货到付款

	// 结算字段（完成时一次性写入，此后不再重算）
	PlatformCommissionPercent Money  `gorm:"type:decimal(20,2);not null;default:0" json:"platform_commission_percent"`
	PlatformCommissionAmount  Money  `gorm:"type:decimal(20,2);not null;default:0" json:"platform_commission_amount"`
	BuyerTotal                Money  `gorm:"type:decimal(20,2);not null;default:0" json:"buyer_total"`
	SellerNetAmount           Money  `gorm:"type:decimal(20,2);not null;default:0" json:"seller_net_amount"`
	SellerAddress             string `gorm:"type:varchar(500)" json:"seller_address,omitempty"` // 卖家发货地址

	// 时间线
	AdminApprovedAt     *time.Time `json:"admin_approved_at"`
	SellerApprovedAt    *time.Time `json:"seller_approved_at"`
	WorkStartedAt       *time.Time `json:"work_started_at"`
	WorkCompletedAt     *time.Time `json:"work_completed_at"`
	DeliveryScheduledAt *time.Time `json:"delivery_scheduled_at"`
	DeliveryPickedUpAt  *time.Time `json:"delivery_picked_up_at"`
	DeliveredAt         *time.Time `json:"delivered_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	SuspendedAt         *time.Time `json:"suspended_at"`
	CancelledAt         *time.Time `json:"cancelled_at"`

	// 逾期跟踪：completion_deadline 在 ready_for_delivery 之前是完工期限，
	// 完工后若尾款未付则被复用为 48 小时尾款期限
	CompletionDeadline *time.Time `gorm:"index" json:"completion_deadline"`
	IsLate             bool       `gorm:"not null;default:false" json:"is_late"`
	LateReason         string     `gorm:"type:varchar(255)" json:"late_reason,omitempty"`
	SuspensionReason   string     `gorm:"type:varchar(255)" json:"suspension_reason,omitempty"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	History []OrderHistory `gorm:"foreignKey:OrderID" json:"history,omitempty"` // 迁移流水
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
