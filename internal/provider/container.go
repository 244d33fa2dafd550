package provider

import (
	"time"

	"github.com/affiliate-ledger/internal/broker"
	"github.com/affiliate-ledger/internal/cache"
	"github.com/affiliate-ledger/internal/config"
	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/merchantapi"
	"github.com/affiliate-ledger/internal/models"
	"github.com/affiliate-ledger/internal/queue"
	"github.com/affiliate-ledger/internal/repository"
	"github.com/affiliate-ledger/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Publisher   broker.Publisher
	MerchantAPI merchantapi.Client

	// Repositories
	UserRepo      repository.UserRepository
	MerchantRepo  repository.MerchantRepository
	AffiliateRepo repository.AffiliateRepository
	OrderRepo     repository.OrderRepository
	StatsRepo     repository.StatsRepository

	// Services
	MerchantService  *service.MerchantService
	AffiliateService *service.AffiliateService
	OrderService     *service.OrderService
	PayoutService    *service.PayoutService
	StatsService     *service.StatsService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	return NewContainerWithDB(cfg, models.DB)
}

// NewContainerWithDB 使用指定连接初始化容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 队列未启用时客户端投递返回 ErrQueueDisabled
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
	}

	merchantAPI, err := merchantapi.New(merchantapi.Config{
		Driver:  cfg.MerchantAPI.Driver,
		BaseURL: cfg.MerchantAPI.BaseURL,
		Token:   cfg.MerchantAPI.Token,
		Timeout: time.Duration(cfg.MerchantAPI.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		logger.Errorw("provider_init_merchant_api_failed", "driver", cfg.MerchantAPI.Driver, "error", err)
		panic(err)
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
		Publisher:   newPublisher(&cfg.Kafka),
		MerchantAPI: merchantAPI,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.Warnw("provider_close_publisher_failed", "error", err)
		}
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

func (c *Container) initRepositories() {
	db := c.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.MerchantRepo = repository.NewMerchantRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.StatsRepo = repository.NewStatsRepository(db)
}

func (c *Container) initServices() {
	c.MerchantService = service.NewMerchantService(c.MerchantRepo, c.UserRepo)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.UserRepo, c.MerchantAPI)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.MerchantService,
		c.AffiliateService,
		c.Publisher,
		time.Duration(c.Config.Ingestion.TimeoutSeconds)*time.Second,
	)
	c.PayoutService = service.NewPayoutService(c.OrderRepo, c.AffiliateRepo, c.QueueClient, c.MerchantAPI)
	c.StatsService = service.NewStatsService(
		c.StatsRepo,
		time.Duration(c.Config.Stats.CacheTTLSeconds)*time.Second,
	)
}

func newPublisher(cfg *config.KafkaConfig) broker.Publisher {
	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		return broker.NewLogPublisher()
	}
	logger.Infow("provider_kafka_publisher_enabled", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return broker.NewProducer(cfg.Brokers, cfg.Topic)
}
