package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/affiliate-ledger/internal/app"
	"github.com/affiliate-ledger/internal/config"
	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
)

func main() {
	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner(mode)

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := app.ValidateMode(mode); err != nil {
		stdLog.Fatalf("启动参数错误: %v", err)
	}

	if strings.EqualFold(cfg.MerchantAPI.Driver, constants.MerchantAPIDriverHTTP) && isWeakToken(cfg.MerchantAPI.Token) {
		if cfg.Server.Mode == "release" {
			stdLog.Fatalf("merchant_api.token 过弱或未配置，请在生产环境中配置强随机令牌")
		}
		stdLog.Printf("警告: merchant_api.token 过弱或未配置，建议在生产环境中更换")
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner(mode string) {
	fmt.Println(ansiCyan + ansiBold + "affiliate-ledger" + ansiReset + ansiDim + " · order ingestion & commission ledger" + ansiReset)
	fmt.Println(ansiDim + "mode: " + mode + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakToken(token string) bool {
	if len(token) < 32 {
		return true
	}
	normalized := strings.ToLower(token)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-token") {
		return true
	}
	return false
}
