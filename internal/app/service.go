package app

import (
	"context"
	"errors"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Service 服务接口
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

const defaultStopTimeout = 10 * time.Second

// Runner 服务运行器
type Runner struct {
	services []Service
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}

	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 并发启动全部服务，任一服务退出或 ctx 结束后统一停止
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, logger *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exited := r.startAll(ctx, logger)
	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-exited:
	}
	cancel()

	r.stopAll(stopTimeout, logger)
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// startAll 每个服务一个 goroutine，Start 的返回值写入通道
func (r *Runner) startAll(ctx context.Context, logger *zap.SugaredLogger) <-chan error {
	exited := make(chan error, len(r.services))
	for _, svc := range r.services {
		go func() {
			if svc == nil {
				exited <- errors.New("service is nil")
				return
			}
			logger.Infow("service_start", "service", svc.Name())
			err := svc.Start(ctx)
			logger.Infow("service_exit", "service", svc.Name(), "error", err)
			exited <- err
		}()
	}
	return exited
}

// stopAll 在同一超时内依次停止服务，单个失败不影响其余服务
func (r *Runner) stopAll(timeout time.Duration, logger *zap.SugaredLogger) {
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), timeout)
	defer stopCancel()
	for _, svc := range r.services {
		if svc == nil {
			continue
		}
		if err := svc.Stop(stopCtx); err != nil {
			logger.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			continue
		}
		logger.Infow("service_stopped", "service", svc.Name())
	}
}
