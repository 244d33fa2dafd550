package main

import (
	"context"
	"errors"
	"flag"

	"github.com/affiliate-ledger/internal/config"
	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/models"
	"github.com/affiliate-ledger/internal/repository"
	"github.com/affiliate-ledger/internal/service"

	"github.com/shopspring/decimal"
)

func main() {
	var (
		domain = flag.String("domain", "demo-shop.example.com", "商户店铺域名")
		name   = flag.String("name", "Demo Shop", "商户名称")
		email  = flag.String("email", "owner@demo-shop.example.com", "商户登录邮箱")
		apiKey = flag.String("api-key", "demo-merchant-key", "商户 API Key")
		rate   = flag.String("rate", "0.1", "新推广者默认佣金比例")
	)
	flag.Parse()

	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	commissionRate, err := decimal.NewFromString(*rate)
	if err != nil {
		stdLog.Fatalf("Invalid commission rate %q: %v", *rate, err)
	}

	// 添加演示商户
	merchants := service.NewMerchantService(
		repository.NewMerchantRepository(models.DB),
		repository.NewUserRepository(models.DB),
	)
	merchant, err := merchants.Register(context.Background(), service.MerchantRegisterInput{
		Domain:                *domain,
		Name:                  *name,
		Email:                 *email,
		APIKey:                *apiKey,
		DefaultCommissionRate: commissionRate,
	})
	if err != nil {
		if errors.Is(err, service.ErrIdentityConflict) {
			stdLog.Printf("Merchant %s already seeded, skipping", *domain)
			return
		}
		stdLog.Fatalf("Failed to seed merchant: %v", err)
	}
	stdLog.Printf("Seeded merchant id=%d domain=%s email=%s", merchant.ID, merchant.Domain, *email)
}
