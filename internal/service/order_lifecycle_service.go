package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/craftbay/internal/constants"
	"github.com/craftbay/internal/logger"
	"github.com/craftbay/internal/models"
	"github.com/craftbay/internal/queue"
	"github.com/craftbay/internal/repository"

	"gorm.io/gorm"
)

// ActorContext 迁移操作的发起者（系统动作为零值）
type ActorContext struct {
	ActorID uint
	Role    string
}

func (a ActorContext) actionBy() *uint {
	if a.ActorID == 0 {
		return nil
	}
	id := a.ActorID
	return &id
}

// IsAdmin 是否管理员
func (a ActorContext) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(a.Role), constants.ActorRoleAdmin)
}

// SellerApproveInput 卖家接单输入
type SellerApproveInput struct {
	Address            string
	CompletionDeadline *time.Time
}

// OrderLifecycleService 订单状态机。所有迁移都在单个事务内完成：
// 行锁取单 → 校验前置条件 → 写新状态与时间戳 → 追加一条流水 →
// 必要时在同事务内动账。任一步失败整体回滚。
type OrderLifecycleService struct {
	orderRepo        repository.OrderRepository
	historyRepo      repository.OrderHistoryRepository
	cityRepo         repository.CityRepository
	profitRepo       repository.PlatformProfitRepository
	walletService    *WalletService
	notificationSvc  *NotificationService
	queueClient      *queue.Client
	clock            Clock
	remainingPayment time.Duration
}

// NewOrderLifecycleService 创建订单状态机服务
func NewOrderLifecycleService(
	orderRepo repository.OrderRepository,
	historyRepo repository.OrderHistoryRepository,
	cityRepo repository.CityRepository,
	profitRepo repository.PlatformProfitRepository,
	walletService *WalletService,
	notificationSvc *NotificationService,
	queueClient *queue.Client,
	clock Clock,
	remainingPaymentWindow time.Duration,
) *OrderLifecycleService {
	if clock == nil {
		clock = SystemClock()
	}
	if remainingPaymentWindow <= 0 {
		remainingPaymentWindow = 48 * time.Hour
	}
	return &OrderLifecycleService{
		orderRepo:        orderRepo,
		historyRepo:      historyRepo,
		cityRepo:         cityRepo,
		profitRepo:       profitRepo,
		walletService:    walletService,
		notificationSvc:  notificationSvc,
		queueClient:      queueClient,
		clock:            clock,
		remainingPayment: remainingPaymentWindow,
	}
}

// ApproveByAdmin 管理员审核通过。
// 普通路径 pending → admin_approved；若订单带着尾款凭证回到 pending
// 复审，则恢复 previous_status 并确认尾款到账。
func (s *OrderLifecycleService) ApproveByAdmin(orderID uint, actor ActorContext) (*models.Order, error) {
	return s.mutate(orderID, func(tx *gorm.DB, order *models.Order, now time.Time) error {
		if order.Status != constants.OrderStatusPending {
			return ErrInvalidTransition
		}
		if order.PriceApprovalStatus == constants.PriceApprovalPending {
			return ErrInvalidTransition
		}
		hasPaymentEvidence := strings.TrimSpace(order.PaymentProof) != "" ||
			order.IsCashOnDelivery ||
			(order.RequiresDeposit && order.DepositStatus == constants.DepositStatusPaid) ||
			strings.TrimSpace(order.RemainingPaymentProof) != ""
		if !hasPaymentEvidence {
			return ErrInvalidTransition
		}

		orderRepo := s.orderRepo.WithTx(tx)

		// 尾款复审：买家补交尾款凭证后订单回到 pending，
		// 审核通过即恢复原状态并确认到账
		if order.PreviousStatus != "" && strings.TrimSpace(order.RemainingPaymentProof) != "" {
			restored := order.PreviousStatus
			updates := map[string]interface{}{
				"previous_status":     "",
				"payment_status":      constants.PaymentStatusPaid,
				"completion_deadline": nil,
				"updated_at":          now,
			}
			if err := orderRepo.UpdateStatus(order.ID, restored, updates); err != nil {
				return ErrOrderUpdateFailed
			}
			return s.appendHistory(tx, order.ID, restored, actor.actionBy(), constants.ActionApproveByAdmin, "尾款复审通过，恢复原状态", now)
		}

		updates := map[string]interface{}{
			"admin_approved_at": now,
			"updated_at":        now,
		}
		if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusAdminApproved, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		return s.appendHistory(tx, order.ID, constants.OrderStatusAdminApproved, actor.actionBy(), constants.ActionApproveByAdmin, "", now)
	})
}

// ApproveBySeller 卖家接单，必须同时给出发货地址和完工期限
func (s *OrderLifecycleService) ApproveBySeller(orderID uint, actor ActorContext, input SellerApproveInput) (*models.Order, error) {
	address := strings.TrimSpace(input.Address)
	if address == "" || input.CompletionDeadline == nil || input.CompletionDeadline.IsZero() {
		return nil, ErrMissingRequired
	}
	return s.mutate(orderID, func(tx *gorm.DB, order *models.Order, now time.Time) error {
		if order.Status != constants.OrderStatusAdminApproved {
			return ErrInvalidTransition
		}
		updates := map[string]interface{}{
			"seller_address":      address,
			"completion_deadline": *input.CompletionDeadline,
			"seller_approved_at":  now,
			"updated_at":          now,
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusSellerApproved, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		return s.appendHistory(tx, order.ID, constants.OrderStatusSellerApproved, actor.actionBy(), constants.ActionApproveBySeller, "", now)
	})
}

// StartWork 卖家开工
func (s *OrderLifecycleService) StartWork(orderID uint, actor ActorContext) (*models.Order, error) {
	return s.mutate(orderID, func(tx *gorm.DB, order *models.Order, now time.Time) error {
		if order.Status != constants.OrderStatusSellerApproved {
			return ErrInvalidTransition
		}
		updates := map[string]interface{}{
			"work_started_at": now,
			"updated_at":      now,
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusInProgress, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		return s.appendHistory(tx, order.ID, constants.OrderStatusInProgress, actor.actionBy(), constants.ActionStartWork, "", now)
	})
}

// CompleteWork 卖家完工。清除逾期标记；若定金已付而尾款未付，
// completion_deadline 被复用为尾款窗口，同时投递延时到期任务并通知买家。
func (s *OrderLifecycleService) CompleteWork(orderID uint, actor ActorContext) (*models.Order, error) {
	var remainingDue bool
	var buyerID uint
	order, err := s.mutate(orderID, func(tx *gorm.DB, order *models.Order, now time.Time) error {
		if order.Status != constants.OrderStatusInProgress {
			return ErrInvalidTransition
		}
		remainingDue = order.RequiresDeposit &&
			order.DepositStatus == constants.DepositStatusPaid &&
			order.PaymentStatus == constants.PaymentStatusUnpaid
		buyerID = order.BuyerID

		updates := map[string]interface{}{
			"work_completed_at": now,
			"is_late":           false,
			"late_reason":       "",
			"updated_at":        now,
		}
		if remainingDue {
			updates["completion_deadline"] = now.Add(s.remainingPayment)
		} else {
			updates["completion_deadline"] = nil
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusReadyForDelivery, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		return s.appendHistory(tx, order.ID, constants.OrderStatusReadyForDelivery, actor.actionBy(), constants.ActionCompleteWork, "", now)
	})
	if err != nil {
		return nil, err
	}

	if remainingDue {
		if s.queueClient != nil && s.queueClient.Enabled() {
			if enqueueErr := s.queueClient.EnqueueOrderPaymentDeadline(queue.OrderPaymentDeadlinePayload{OrderID: order.ID}, s.remainingPayment); enqueueErr != nil {
				logger.Warnw("order_payment_deadline_enqueue_failed",
					"order_id", order.ID,
					"error", enqueueErr,
				)
			}
		}
		if s.notificationSvc != nil {
			s.notificationSvc.Notify(buyerID, constants.NotificationTypeRemainingPayment,
				fmt.Sprintf("订单 %s 已完工，请在 %d 小时内支付尾款", order.OrderNo, int(s.remainingPayment.Hours())),
				fmt.Sprintf("/orders/%d", order.ID))
		}
	}
	return order, nil
}

// PickUpByDelivery 配送员取件。带定金的订单必须结清尾款才能进入配送。
func (s *OrderLifecycleService) PickUpByDelivery(orderID uint, actor ActorContext) (*models.Order, error) {
	return s.mutate(orderID, func(tx *gorm.DB, order *models.Order, now time.Time) error {
		if order.Status != constants.OrderStatusReadyForDelivery {
			return ErrInvalidTransition
		}
		if order.RequiresDeposit && order.PaymentStatus != constants.PaymentStatusPaid {
			return ErrInvalidTransition
		}
		updates := map[string]interface{}{
			"delivery_picked_up_at": now,
			"updated_at":            now,
		}
		if order.DeliveryPersonID == nil && actor.ActorID != 0 &&
			strings.EqualFold(strings.TrimSpace(actor.Role), constants.ActorRoleDelivery) {
			updates["delivery_person_id"] = actor.ActorID
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusOutForDelivery, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		return s.appendHistory(tx, order.ID, constants.OrderStatusOutForDelivery, actor.actionBy(), constants.ActionPickUpByDelivery, "", now)
	})
}

// MarkAsDelivered 配送员送达
func (s *OrderLifecycleService) MarkAsDelivered(orderID uint, actor ActorContext) (*models.Order, error) {
	return s.mutate(orderID, func(tx *gorm.DB, order *models.Order, now time.Time) error {
		if order.Status != constants.OrderStatusOutForDelivery {
			return ErrInvalidTransition
		}
		updates := map[string]interface{}{
			"delivered_at": now,
			"updated_at":   now,
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusDelivered, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		return s.appendHistory(tx, order.ID, constants.OrderStatusDelivered, actor.actionBy(), constants.ActionMarkAsDelivered, "", now)
	})
}

// MarkAsCompleted 订单完成。结算一次性计算并落库，卖家净额入账；
// 钱包入账失败整体回滚，平台抽成记录写入失败只记日志。
func (s *OrderLifecycleService) MarkAsCompleted(orderID uint, actor ActorContext) (*models.Order, error) {
	order, err := s.mutate(orderID, func(tx *gorm.DB, order *models.Order, now time.Time) error {
		if order.Status != constants.OrderStatusDelivered {
			return ErrInvalidTransition
		}

		var city *models.City
		if order.CityID != nil {
			found, cityErr := s.cityRepo.GetByID(*order.CityID)
			if cityErr != nil {
				return cityErr
			}
			city = found
		}
		result, calcErr := CalculateSettlement(SettlementInput{
			TotalPrice:        order.TotalPrice.Decimal,
			DeliveryFee:       order.DeliveryFee.Decimal,
			CommissionPercent: resolveCommissionPercent(order, city),
		})
		if calcErr != nil {
			return calcErr
		}

		updates := map[string]interface{}{
			"platform_commission_percent": result.CommissionPercent,
			"platform_commission_amount":  result.CommissionAmount,
			"buyer_total":                 result.BuyerTotal,
			"seller_net_amount":           result.SellerNet,
			"completed_at":                now,
			"updated_at":                  now,
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusCompleted, updates); err != nil {
			return ErrOrderUpdateFailed
		}

		if result.SellerNet.Decimal.IsPositive() {
			settledOrderID := order.ID
			if _, _, creditErr := s.walletService.CreditInTx(tx, WalletCreditInput{
				UserID:    order.SellerID,
				Amount:    result.SellerNet,
				Currency:  order.Currency,
				TxnType:   constants.WalletTxnTypeSettlementCredit,
				Reference: buildOrderWalletReference(order.ID, constants.WalletTxnTypeSettlementCredit),
				Remark:    fmt.Sprintf("订单 %s 完成结算", order.OrderNo),
				OrderID:   &settledOrderID,
			}); creditErr != nil {
				return creditErr
			}
		}

		// 非关键遥测：抽成审计行写入失败不回滚订单完成。
		// 必须走嵌套事务（SAVEPOINT）隔离，否则 postgres 上失败语句
		// 会让整个外层事务进入 aborted 状态
		if result.CommissionAmount.Decimal.IsPositive() {
			profit := &models.PlatformProfit{
				OrderID:           order.ID,
				CommissionPercent: result.CommissionPercent,
				Amount:            result.CommissionAmount,
				Currency:          normalizeWalletCurrency(order.Currency),
				CreatedAt:         now,
			}
			if profitErr := tx.Transaction(func(inner *gorm.DB) error {
				return s.profitRepo.WithTx(inner).Create(profit)
			}); profitErr != nil {
				logger.Errorw("platform_profit_record_failed",
					"order_id", order.ID,
					"amount", result.CommissionAmount.String(),
					"error", profitErr,
				)
			}
		}

		return s.appendHistory(tx, order.ID, constants.OrderStatusCompleted, actor.actionBy(), constants.ActionMarkAsCompleted, "", now)
	})
	if err != nil {
		return nil, err
	}

	if s.notificationSvc != nil {
		s.notificationSvc.Notify(order.SellerID, constants.NotificationTypeOrderCompleted,
			fmt.Sprintf("订单 %s 已完成，净额 %s 已入账", order.OrderNo, order.SellerNetAmount.String()),
			fmt.Sprintf("/orders/%d", order.ID))
	}
	return order, nil
}

// Cancel 取消订单。买卖双方只能在开工链路早段取消，管理员不受限；
// 终态订单一律拒绝。
func (s *OrderLifecycleService) Cancel(orderID uint, actor ActorContext, reason string) (*models.Order, error) {
	return s.mutate(orderID, func(tx *gorm.DB, order *models.Order, now time.Time) error {
		if order.Status == constants.OrderStatusCompleted || order.Status == constants.OrderStatusCancelled {
			return ErrInvalidTransition
		}
		if !actor.IsAdmin() && !userCancellable(order.Status) {
			return ErrCancelNotAllowed
		}
		updates := map[string]interface{}{
			"cancelled_at": now,
			"updated_at":   now,
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusCancelled, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		return s.appendHistory(tx, order.ID, constants.OrderStatusCancelled, actor.actionBy(), constants.ActionCancel, strings.TrimSpace(reason), now)
	})
}

// Suspend 配送员上报异常，订单挂起
func (s *OrderLifecycleService) Suspend(orderID uint, actor ActorContext, reason string) (*models.Order, error) {
	return s.mutate(orderID, func(tx *gorm.DB, order *models.Order, now time.Time) error {
		if order.Status != constants.OrderStatusOutForDelivery {
			return ErrInvalidTransition
		}
		suspensionReason := strings.TrimSpace(reason)
		if suspensionReason == "" {
			suspensionReason = constants.SuspensionReasonCourier
		}
		updates := map[string]interface{}{
			"suspended_at":      now,
			"suspension_reason": suspensionReason,
			"updated_at":        now,
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusSuspended, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		return s.appendHistory(tx, order.ID, constants.OrderStatusSuspended, actor.actionBy(), constants.ActionSuspend, suspensionReason, now)
	})
}

// ApproveProposedPrice 卖家接受买家出价，出价成为结算口径的基础价
func (s *OrderLifecycleService) ApproveProposedPrice(orderID uint, actor ActorContext) (*models.Order, error) {
	return s.mutate(orderID, func(tx *gorm.DB, order *models.Order, now time.Time) error {
		if order.PriceApprovalStatus != constants.PriceApprovalPending {
			return ErrPriceApprovalState
		}
		if order.BuyerProposedPrice == nil {
			return ErrMissingRequired
		}
		updates := map[string]interface{}{
			"total_price":           *order.BuyerProposedPrice,
			"price_approval_status": constants.PriceApprovalApproved,
			"updated_at":            now,
		}
		if err := s.orderRepo.WithTx(tx).Updates(order.ID, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		return s.appendHistory(tx, order.ID, order.Status, actor.actionBy(), constants.ActionApproveProposedPrice,
			fmt.Sprintf("出价 %s 已接受", order.BuyerProposedPrice.String()), now)
	})
}

// RejectProposedPrice 卖家拒绝出价，订单取消。
// 已付定金先退回买家钱包，退款失败整体回滚，订单停在 pending_approval。
func (s *OrderLifecycleService) RejectProposedPrice(orderID uint, actor ActorContext) (*models.Order, error) {
	order, err := s.mutate(orderID, func(tx *gorm.DB, order *models.Order, now time.Time) error {
		if order.PriceApprovalStatus != constants.PriceApprovalPending {
			return ErrPriceApprovalState
		}

		updates := map[string]interface{}{
			"price_approval_status": constants.PriceApprovalRejected,
			"cancelled_at":          now,
			"updated_at":            now,
		}

		// 退定金必须先于状态翻转成功
		if order.RequiresDeposit && order.DepositStatus == constants.DepositStatusPaid &&
			order.DepositAmount.Decimal.IsPositive() {
			refundOrderID := order.ID
			if _, _, refundErr := s.walletService.CreditInTx(tx, WalletCreditInput{
				UserID:    order.BuyerID,
				Amount:    order.DepositAmount,
				Currency:  order.Currency,
				TxnType:   constants.WalletTxnTypeDepositRefund,
				Reference: buildOrderWalletReference(order.ID, constants.WalletTxnTypeDepositRefund),
				Remark:    fmt.Sprintf("订单 %s 出价被拒，定金退回", order.OrderNo),
				OrderID:   &refundOrderID,
			}); refundErr != nil {
				return refundErr
			}
			updates["deposit_status"] = constants.DepositStatusRefunded
		}

		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusCancelled, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		return s.appendHistory(tx, order.ID, constants.OrderStatusCancelled, actor.actionBy(), constants.ActionRejectProposedPrice, "出价被拒，订单取消", now)
	})
	if err != nil {
		return nil, err
	}

	if s.notificationSvc != nil && order.DepositStatus == constants.DepositStatusRefunded {
		s.notificationSvc.Notify(order.BuyerID, constants.NotificationTypeDepositRefunded,
			fmt.Sprintf("订单 %s 定金 %s 已退回钱包", order.OrderNo, order.DepositAmount.String()),
			fmt.Sprintf("/orders/%d", order.ID))
	}
	return order, nil
}

func userCancellable(status string) bool {
	switch status {
	case constants.OrderStatusPending,
		constants.OrderStatusAdminApproved,
		constants.OrderStatusSellerApproved,
		constants.OrderStatusInProgress:
		return true
	default:
		return false
	}
}

// mutate 状态机迁移骨架：行锁取单后执行迁移闭包，提交后返回最新快照
func (s *OrderLifecycleService) mutate(orderID uint, fn func(tx *gorm.DB, order *models.Order, now time.Time) error) (*models.Order, error) {
	if orderID == 0 {
		return nil, ErrOrderNotFound
	}
	if err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return ErrOrderFetchFailed
		}
		if order == nil {
			return ErrOrderNotFound
		}
		return fn(tx, order, s.clock.Now())
	}); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderLifecycleService) appendHistory(tx *gorm.DB, orderID uint, status string, actionBy *uint, actionType, note string, now time.Time) error {
	entry := &models.OrderHistory{
		OrderID:    orderID,
		Status:     status,
		ActionBy:   actionBy,
		ActionType: actionType,
		Note:       note,
		CreatedAt:  now,
	}
	if err := s.historyRepo.WithTx(tx).Append(entry); err != nil {
		return ErrHistoryAppendFail
	}
	return nil
}
