package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/craftbay/internal/logger"
	"github.com/craftbay/internal/provider"
	"github.com/craftbay/internal/queue"
	"github.com/craftbay/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderPaymentDeadline, c.handleOrderPaymentDeadline)
	mux.HandleFunc(queue.TaskNotificationDispatch, c.handleNotificationDispatch)
}

// handleOrderPaymentDeadline 延时到期任务与周期巡检收敛到同一个
// 幂等操作，到期前付款或已被并发处理的订单直接跳过
func (c *Consumer) handleOrderPaymentDeadline(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_deadline_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderPaymentDeadlinePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_deadline_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_payment_deadline_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderLifecycle == nil {
		logger.Warnw("worker_payment_deadline_skip_lifecycle_nil", "order_id", payload.OrderID)
		return nil
	}
	expired, err := c.OrderLifecycle.ExpirePaymentDeadline(payload.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_payment_deadline_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderFetchFailed):
			logger.Warnw("worker_payment_deadline_fetch_failed", "order_id", payload.OrderID, "error", err)
			return err
		default:
			logger.Warnw("worker_payment_deadline_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	if !expired {
		logger.Debugw("worker_payment_deadline_noop", "order_id", payload.OrderID)
	}
	return nil
}

func (c *Consumer) handleNotificationDispatch(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if payload.NotificationID == 0 {
		logger.Debugw("worker_notification_dispatch_skip_invalid_payload", "notification_id", payload.NotificationID)
		return nil
	}
	notification, err := c.NotificationRepo.GetByID(payload.NotificationID)
	if err != nil {
		logger.Warnw("worker_notification_dispatch_fetch_failed", "notification_id", payload.NotificationID, "error", err)
		return err
	}
	if notification == nil {
		logger.Debugw("worker_notification_dispatch_skip_not_found", "notification_id", payload.NotificationID)
		return nil
	}

	// 推送/邮件等外部渠道不在本引擎范围内，这里只留审计日志
	logger.Infow("notification_dispatched",
		"notification_id", notification.ID,
		"user_id", notification.UserID,
		"type", notification.Type,
	)
	return nil
}
