package worker

import (
	"context"
	"errors"

	"github.com/affiliate-ledger/internal/config"
	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = newAsynqLogger()
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
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
	_ = ctx
	logger.Infow("worker_started", "task", queue.TaskOrderPayout)
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

// asynqLogger 将 asynq 内部日志接入 zap
type asynqLogger struct{}

func newAsynqLogger() asynq.Logger {
	return asynqLogger{}
}

func (asynqLogger) Debug(args ...interface{}) { logger.S().Debug(args...) }
func (asynqLogger) Info(args ...interface{})  { logger.S().Info(args...) }
func (asynqLogger) Warn(args ...interface{})  { logger.S().Warn(args...) }
func (asynqLogger) Error(args ...interface{}) { logger.S().Error(args...) }
func (asynqLogger) Fatal(args ...interface{}) { logger.S().Fatal(args...) }
