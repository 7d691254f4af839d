package service

import (
	"github.com/craftbay/internal/constants"
	"github.com/craftbay/internal/logger"
	"github.com/craftbay/internal/models"
	"github.com/craftbay/internal/repository"
)

// GetOrder 读取订单快照。读取时机会式做一次逾期检查，
// 检查失败不影响读取本身。
func (s *OrderLifecycleService) GetOrder(orderID uint) (*models.Order, error) {
	if orderID == 0 {
		return nil, ErrOrderNotFound
	}
	if _, err := s.CheckIfLate(orderID); err != nil {
		logger.Warnw("order_late_check_failed",
			"order_id", orderID,
			"error", err,
		)
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	order.NextActionHint = nextActionHint(order)
	return order, nil
}

// ListOrders 分页查询订单
func (s *OrderLifecycleService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	orders, total, err := s.orderRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].NextActionHint = nextActionHint(&orders[i])
	}
	return orders, total, nil
}

// ListHistory 按时间顺序读取订单流水
func (s *OrderLifecycleService) ListHistory(orderID uint) ([]models.OrderHistory, error) {
	if orderID == 0 {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.historyRepo.ListByOrder(orderID)
}

// nextActionHint 根据当前状态给出下一步动作提示（仅供前端展示）
func nextActionHint(order *models.Order) string {
	if order == nil {
		return ""
	}
	if order.PriceApprovalStatus == constants.PriceApprovalPending {
		return "awaiting_price_decision"
	}
	switch order.Status {
	case constants.OrderStatusPending:
		return "awaiting_admin_approval"
	case constants.OrderStatusAdminApproved:
		return "awaiting_seller_approval"
	case constants.OrderStatusSellerApproved:
		return "awaiting_work_start"
	case constants.OrderStatusInProgress:
		return "awaiting_work_completion"
	case constants.OrderStatusReadyForDelivery:
		if order.RequiresDeposit && order.PaymentStatus == constants.PaymentStatusUnpaid {
			return "awaiting_remaining_payment"
		}
		return "awaiting_pickup"
	case constants.OrderStatusOutForDelivery:
		return "awaiting_delivery"
	case constants.OrderStatusDelivered:
		return "awaiting_completion_confirm"
	default:
		return ""
	}
}
