package queue

import (
	"encoding/json"

	"github.com/craftbay/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderPaymentDeadline 尾款期限到期任务
	TaskOrderPaymentDeadline = constants.TaskOrderPaymentDeadline
	// TaskNotificationDispatch 通知分发任务
	TaskNotificationDispatch = constants.TaskNotificationDispatch
)

// OrderPaymentDeadlinePayload 尾款期限任务载荷
type OrderPaymentDeadlinePayload struct {
	OrderID uint `json:"order_id"`
}

// NotificationDispatchPayload 通知分发任务载荷
type NotificationDispatchPayload struct {
	NotificationID uint   `json:"notification_id"`
	UserID         uint   `json:"user_id"`
	Type           string `json:"type"`
}

// NewOrderPaymentDeadlineTask 创建尾款期限任务
func NewOrderPaymentDeadlineTask(payload OrderPaymentDeadlinePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPaymentDeadline, body), nil
}

// NewNotificationDispatchTask 创建通知分发任务
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}
