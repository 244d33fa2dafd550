package broker

import (
	"context"
	"time"

	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/logger"
)

// CommissionLoggedEvent 订单落库并记账佣金后发布的事件
type CommissionLoggedEvent struct {
	EventType       string    `json:"event_type"`
	OrderID         uint      `json:"order_id"`
	ExternalOrderID string    `json:"external_order_id"`
	MerchantID      uint      `json:"merchant_id"`
	AffiliateID     uint      `json:"affiliate_id"`
	Subtotal        string    `json:"subtotal"`
	CommissionRate  string    `json:"commission_rate"`
	CommissionOwed  string    `json:"commission_owed"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher 领域事件发布接口
type Publisher interface {
	PublishCommissionLogged(ctx context.Context, event CommissionLoggedEvent) error
	Close() error
}

// LogPublisher 未启用 Kafka 时仅输出结构化日志
type LogPublisher struct{}

// NewLogPublisher 创建日志发布器
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// PublishCommissionLogged 记录佣金事件
func (p *LogPublisher) PublishCommissionLogged(_ context.Context, event CommissionLoggedEvent) error {
	logger.Infow("commission_logged_event",
		"event_type", normalizeEventType(event.EventType),
		"order_id", event.OrderID,
		"external_order_id", event.ExternalOrderID,
		"affiliate_id", event.AffiliateID,
		"commission_owed", event.CommissionOwed,
	)
	return nil
}

// Close 无资源需要释放
func (p *LogPublisher) Close() error {
	return nil
}

func normalizeEventType(eventType string) string {
	if eventType == "" {
		return constants.EventCommissionLogged
	}
	return eventType
}
