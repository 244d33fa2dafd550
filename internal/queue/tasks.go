package queue

import (
	"encoding/json"
	"fmt"

	"github.com/affiliate-ledger/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderPayout 订单佣金打款任务
	TaskOrderPayout = constants.TaskOrderPayout
)

// OrderPayoutPayload 订单佣金打款任务载荷
type OrderPayoutPayload struct {
	OrderID         uint   `json:"order_id"`
	ExternalOrderID string `json:"external_order_id"`
}

// NewOrderPayoutTask 创建订单佣金打款任务
func NewOrderPayoutTask(payload OrderPayoutPayload) (*asynq.Task, error) {
	if payload.OrderID == 0 {
		return nil, fmt.Errorf("order payout payload missing order_id")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPayout, body), nil
}

// ParseOrderPayoutPayload 解析订单佣金打款任务载荷
func ParseOrderPayoutPayload(body []byte) (OrderPayoutPayload, error) {
	var payload OrderPayoutPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return OrderPayoutPayload{}, err
	}
	if payload.OrderID == 0 {
		return OrderPayoutPayload{}, fmt.Errorf("order payout payload missing order_id")
	}
	return payload, nil
}
