package provider

import (
	"time"

	"github.com/craftbay/internal/config"
	"github.com/craftbay/internal/logger"
	"github.com/craftbay/internal/models"
	"github.com/craftbay/internal/queue"
	"github.com/craftbay/internal/repository"
	"github.com/craftbay/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Clock       service.Clock

	// Repositories
	UserRepo           repository.UserRepository
	CityRepo           repository.CityRepository
	OrderRepo          repository.OrderRepository
	OrderHistoryRepo   repository.OrderHistoryRepository
	WalletRepo         repository.WalletRepository
	NotificationRepo   repository.NotificationRepository
	PlatformProfitRepo repository.PlatformProfitRepository

	// Services
	WalletService       *service.WalletService
	NotificationService *service.NotificationService
	OrderLifecycle      *service.OrderLifecycleService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Clock:       service.SystemClock(),
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.CityRepo = repository.NewCityRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.OrderHistoryRepo = repository.NewOrderHistoryRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
	c.PlatformProfitRepo = repository.NewPlatformProfitRepository(db)
}

func (c *Container) initServices() {
	c.WalletService = service.NewWalletService(c.WalletRepo, c.Clock)
	c.NotificationService = service.NewNotificationService(c.NotificationRepo, c.QueueClient, c.Clock)

	remainingWindow := time.Duration(c.Config.Order.RemainingPaymentHours) * time.Hour
	c.OrderLifecycle = service.NewOrderLifecycleService(
		c.OrderRepo,
		c.OrderHistoryRepo,
		c.CityRepo,
		c.PlatformProfitRepo,
		c.WalletService,
		c.NotificationService,
		c.QueueClient,
		c.Clock,
		remainingWindow,
	)
}
