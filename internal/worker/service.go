package worker

import (
	"context"
	"errors"
	"time"

	"github.com/craftbay/internal/config"
	"github.com/craftbay/internal/logger"
	"github.com/craftbay/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultSweepInterval = 5 * time.Minute
	defaultSweepLimit    = 200
)

// Service 异步队列服务。消费延时任务之外，还运行尾款超期巡检：
// 两条路径最终收敛到同一个幂等迁移。
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
	sweepLimit    int
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, orderCfg *config.OrderConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	sweepInterval := defaultSweepInterval
	sweepLimit := defaultSweepLimit
	if orderCfg != nil {
		if orderCfg.SweepIntervalSeconds > 0 {
			sweepInterval = time.Duration(orderCfg.SweepIntervalSeconds) * time.Second
		}
		if orderCfg.SweepBatchLimit > 0 {
			sweepLimit = orderCfg.SweepBatchLimit
		}
	}
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: sweepInterval,
		sweepLimit:    sweepLimit,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.OrderLifecycle != nil {
		go s.runPaymentDeadlineSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runPaymentDeadlineSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.OrderLifecycle == nil {
		return
	}
	runOnce := func() {
		if _, err := s.consumer.OrderLifecycle.ExpireDuePaymentDeadlines(s.sweepLimit); err != nil {
			logger.Warnw("worker_payment_deadline_sweep_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
