package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/affiliate-ledger/internal/config"
	"github.com/affiliate-ledger/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 资金相关任务队列
	CriticalQueue = constants.QueueCritical
)

// ErrQueueDisabled 队列未启用
var ErrQueueDisabled = errors.New("task queue disabled")

// Client 队列客户端封装
type Client struct {
	client   *asynq.Client
	enabled  bool
	maxRetry int
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false}, nil
	}
	return &Client{
		client:   asynq.NewClient(buildRedisOpt(cfg)),
		enabled:  true,
		maxRetry: cfg.MaxRetry,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueOrderPayout 推送订单佣金打款任务。
// 不做去重，重复投递由打款任务自身的幂等保证。
func (c *Client) EnqueueOrderPayout(ctx context.Context, payload OrderPayoutPayload) error {
	if !c.Enabled() {
		return ErrQueueDisabled
	}
	task, err := NewOrderPayoutTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, c.payoutOptions()...)
	return err
}

func (c *Client) payoutOptions() []asynq.Option {
	options := []asynq.Option{asynq.Queue(CriticalQueue)}
	if c.maxRetry > 0 {
		options = append(options, asynq.MaxRetry(c.maxRetry))
	}
	return options
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{CriticalQueue: 5, DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
