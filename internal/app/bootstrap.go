package app

import (
	"errors"

	"github.com/affiliate-ledger/internal/config"
	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/provider"
	"github.com/affiliate-ledger/internal/router"
	"github.com/affiliate-ledger/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string, container *provider.Container) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := ValidateMode(mode); err != nil {
		return nil, err
	}
	if container == nil {
		return nil, errors.New("container is nil")
	}
	// 推广码签发与打款都依赖商户平台客户端
	if container.MerchantAPI == nil {
		return nil, errors.New("merchant api client is nil")
	}

	var services []Service

	// 初始化 HTTP 服务（webhook 与商户接口）
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine)
		services = append(services, httpService)
	}

	// 初始化打款 Worker 服务
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container.PayoutService)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			if mode == ModeWorker {
				return nil, err
			}
			logger.Warnw("app_worker_skipped", "error", err)
		} else {
			services = append(services, workerService)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	container := provider.NewContainer(opts.Config)
	defer container.Close()

	runner, err := BuildRunner(opts.Config, opts.Mode, container)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
