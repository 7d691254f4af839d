package service

import (
	"strings"

	"github.com/craftbay/internal/logger"
	"github.com/craftbay/internal/models"
	"github.com/craftbay/internal/queue"
	"github.com/craftbay/internal/repository"

	"github.com/hibiken/asynq"
)

// NotificationService 站内通知服务。通知是尽力而为的：
// 落库或入队失败只记日志，绝不阻断订单迁移。
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	queueClient      *queue.Client
	clock            Clock
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	queueClient *queue.Client,
	clock Clock,
) *NotificationService {
	if clock == nil {
		clock = SystemClock()
	}
	return &NotificationService{
		notificationRepo: notificationRepo,
		queueClient:      queueClient,
		clock:            clock,
	}
}

// Notify 写入站内通知并入队分发。任何失败只记日志。
func (s *NotificationService) Notify(userID uint, notifyType, message, link string) {
	s.notifyWithRepo(s.notificationRepo, userID, notifyType, message, link)
}

func (s *NotificationService) notifyWithRepo(repo repository.NotificationRepository, userID uint, notifyType, message, link string) {
	if s == nil || userID == 0 {
		return
	}
	notifyType = strings.TrimSpace(notifyType)
	notification := &models.Notification{
		UserID:    userID,
		Type:      notifyType,
		Message:   strings.TrimSpace(message),
		Link:      strings.TrimSpace(link),
		CreatedAt: s.clock.Now(),
	}
	if err := repo.Create(notification); err != nil {
		logger.Warnw("notification_persist_failed",
			"user_id", userID,
			"type", notifyType,
			"error", err,
		)
		return
	}

	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	payload := queue.NotificationDispatchPayload{
		NotificationID: notification.ID,
		UserID:         userID,
		Type:           notifyType,
	}
	if err := s.queueClient.EnqueueNotificationDispatch(payload, asynq.MaxRetry(5)); err != nil {
		logger.Warnw("notification_enqueue_failed",
			"notification_id", notification.ID,
			"user_id", userID,
			"type", notifyType,
			"error", err,
		)
	}
}

// ListNotifications 查询通知列表
func (s *NotificationService) ListNotifications(filter repository.NotificationListFilter) ([]models.Notification, int64, error) {
	return s.notificationRepo.List(filter)
}

// MarkRead 标记通知已读
func (s *NotificationService) MarkRead(id uint) error {
	if id == 0 {
		return nil
	}
	return s.notificationRepo.MarkRead(id, s.clock.Now())
}
