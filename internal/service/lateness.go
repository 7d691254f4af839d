package service

import (
	"fmt"
	"time"

	"github.com/craftbay/internal/constants"
	"github.com/craftbay/internal/logger"
	"github.com/craftbay/internal/models"

	"gorm.io/gorm"
)

// lateEligible 逾期标记只适用于完工前的生产阶段
func lateEligible(status string) bool {
	return status == constants.OrderStatusSellerApproved || status == constants.OrderStatusInProgress
}

// CheckIfLate 机会式逾期检查（例如读单时触发）。
// 与巡检走同一把行锁，已标记过的订单直接跳过，不写流水。
func (s *OrderLifecycleService) CheckIfLate(orderID uint) (bool, error) {
	if orderID == 0 {
		return false, ErrOrderNotFound
	}
	var flagged bool
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return ErrOrderFetchFailed
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.IsLate || !lateEligible(order.Status) {
			return nil
		}
		now := s.clock.Now()
		if order.CompletionDeadline == nil || !now.After(*order.CompletionDeadline) {
			return nil
		}
		updates := map[string]interface{}{
			"is_late":     true,
			"late_reason": fmt.Sprintf("完工期限 %s 已过", order.CompletionDeadline.Format(time.RFC3339)),
			"updated_at":  now,
		}
		if err := s.orderRepo.WithTx(tx).Updates(order.ID, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		flagged = true
		return nil
	})
	return flagged, err
}

// ExpirePaymentDeadline 处理单个订单的尾款期限到期。
// 锁后复核资格，不满足即为幂等空操作；满足则把定金划给卖家、
// 挂起订单并追加恰好一条 payment_deadline_expired 流水。
func (s *OrderLifecycleService) ExpirePaymentDeadline(orderID uint) (bool, error) {
	if orderID == 0 {
		return false, ErrOrderNotFound
	}
	var expired bool
	var buyerID, sellerID uint
	var orderNo string
	var forfeited models.Money
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return ErrOrderFetchFailed
		}
		if order == nil {
			return ErrOrderNotFound
		}

		// 锁内复核：并发巡检或买家抢在到期前付款都会让资格失效
		if order.Status != constants.OrderStatusReadyForDelivery ||
			!order.RequiresDeposit ||
			order.DepositStatus != constants.DepositStatusPaid ||
			order.PaymentStatus != constants.PaymentStatusUnpaid {
			return nil
		}
		now := s.clock.Now()
		if order.CompletionDeadline == nil || !now.After(*order.CompletionDeadline) {
			return nil
		}

		if order.DepositAmount.Decimal.IsPositive() {
			forfeitOrderID := order.ID
			if _, _, creditErr := s.walletService.CreditInTx(tx, WalletCreditInput{
				UserID:    order.SellerID,
				Amount:    order.DepositAmount,
				Currency:  order.Currency,
				TxnType:   constants.WalletTxnTypeDepositForfeit,
				Reference: buildOrderWalletReference(order.ID, constants.WalletTxnTypeDepositForfeit),
				Remark:    fmt.Sprintf("订单 %s 尾款超期，定金划转卖家", order.OrderNo),
				OrderID:   &forfeitOrderID,
			}); creditErr != nil {
				return creditErr
			}
		}

		updates := map[string]interface{}{
			"suspended_at":      now,
			"suspension_reason": constants.SuspensionReasonPaymentDeadline,
			"updated_at":        now,
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusSuspended, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		if err := s.appendHistory(tx, order.ID, constants.OrderStatusSuspended, nil, constants.ActionPaymentDeadlineExpired,
			"尾款超期未付，定金已划转卖家", now); err != nil {
			return err
		}

		expired = true
		buyerID = order.BuyerID
		sellerID = order.SellerID
		orderNo = order.OrderNo
		forfeited = order.DepositAmount
		return nil
	})
	if err != nil || !expired {
		return false, err
	}

	if s.notificationSvc != nil {
		s.notificationSvc.Notify(buyerID, constants.NotificationTypeOrderSuspended,
			fmt.Sprintf("订单 %s 因尾款超期未付已挂起", orderNo),
			fmt.Sprintf("/orders/%d", orderID))
		s.notificationSvc.Notify(sellerID, constants.NotificationTypeDepositForfeited,
			fmt.Sprintf("订单 %s 定金 %s 已划入你的钱包", orderNo, forfeited.String()),
			fmt.Sprintf("/orders/%d", orderID))
	}
	return true, nil
}

// ExpireDuePaymentDeadlines 尾款超期巡检。单个订单出错不影响其余订单，
// 返回本轮实际处理数。
func (s *OrderLifecycleService) ExpireDuePaymentDeadlines(limit int) (int, error) {
	ids, err := s.orderRepo.ListRemainingPaymentExpired(s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, id := range ids {
		expired, expireErr := s.ExpirePaymentDeadline(id)
		if expireErr != nil {
			logger.Warnw("payment_deadline_expire_failed",
				"order_id", id,
				"error", expireErr,
			)
			continue
		}
		if expired {
			processed++
		}
	}
	if processed > 0 {
		logger.Infow("payment_deadline_sweep_done",
			"candidates", len(ids),
			"expired", processed,
		)
	}
	return processed, nil
}
