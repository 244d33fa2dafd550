package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/queue"
	"github.com/affiliate-ledger/internal/service"

	"github.com/hibiken/asynq"
)

// PayoutCompleter 订单佣金打款执行接口
type PayoutCompleter interface {
	CompleteOrderPayout(ctx context.Context, orderID uint) error
}

// Consumer 异步任务消费者
type Consumer struct {
	Payouts PayoutCompleter
}

// NewConsumer 创建消费者
func NewConsumer(payouts PayoutCompleter) *Consumer {
	return &Consumer{
		Payouts: payouts,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderPayout, c.handleOrderPayout)
}

// handleOrderPayout 执行单笔订单打款；载荷非法或订单不存在时不再重试
func (c *Consumer) handleOrderPayout(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_payout_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseOrderPayoutPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_order_payout_invalid_payload", "error", err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if c.Payouts == nil {
		logger.Warnw("worker_order_payout_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	err = c.Payouts.CompleteOrderPayout(ctx, payload.OrderID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrNotFound):
		logger.Warnw("worker_order_payout_skip_order_not_found",
			"order_id", payload.OrderID,
			"external_order_id", payload.ExternalOrderID,
		)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	case errors.Is(err, service.ErrInvalidInput):
		logger.Warnw("worker_order_payout_skip_invalid", "order_id", payload.OrderID, "error", err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	default:
		logger.Warnw("worker_order_payout_failed",
			"order_id", payload.OrderID,
			"external_order_id", payload.ExternalOrderID,
			"error", err,
		)
		return err
	}
}
