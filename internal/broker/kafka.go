package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/affiliate-ledger/internal/logger"

	"github.com/segmentio/kafka-go"
)

// messageWriter kafka.Writer 的最小抽象
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer Kafka 事件生产者
type Producer struct {
	writer messageWriter
}

// NewProducer 创建 Kafka 生产者
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	return &Producer{writer: writer}
}

// PublishEvent 序列化并写入一条消息
func (p *Producer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message failed: %w", err)
	}
	logger.Debugw("kafka_event_published", "key", key)
	return nil
}

// PublishCommissionLogged 以外部订单号为分区键发布佣金事件，保证同一订单有序
func (p *Producer) PublishCommissionLogged(ctx context.Context, event CommissionLoggedEvent) error {
	event.EventType = normalizeEventType(event.EventType)
	key := event.ExternalOrderID
	if key == "" {
		key = "order-" + strconv.FormatUint(uint64(event.OrderID), 10)
	}
	return p.PublishEvent(ctx, key, event)
}

// Close 关闭生产者
func (p *Producer) Close() error {
	return p.writer.Close()
}
