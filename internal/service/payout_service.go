package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/affiliate-ledger/internal/cache"
	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/merchantapi"
	"github.com/affiliate-ledger/internal/metrics"
	"github.com/affiliate-ledger/internal/queue"
	"github.com/affiliate-ledger/internal/repository"

	"gorm.io/gorm"
)

// PayoutEnqueuer 打款任务投递接口
type PayoutEnqueuer interface {
	EnqueueOrderPayout(ctx context.Context, payload queue.OrderPayoutPayload) error
}

// PayoutService 佣金结算服务
type PayoutService struct {
	orderRepo     repository.OrderRepository
	affiliateRepo repository.AffiliateRepository
	enqueuer      PayoutEnqueuer
	sender        merchantapi.Client
}

// NewPayoutService 创建佣金结算服务
func NewPayoutService(
	orderRepo repository.OrderRepository,
	affiliateRepo repository.AffiliateRepository,
	enqueuer PayoutEnqueuer,
	sender merchantapi.Client,
) *PayoutService {
	return &PayoutService{
		orderRepo:     orderRepo,
		affiliateRepo: affiliateRepo,
		enqueuer:      enqueuer,
		sender:        sender,
	}
}

// DispatchPayouts 为推广者每笔未结算订单投递一个打款任务，返回已投递数量。
// 不修改结算状态，也不去重。
func (s *PayoutService) DispatchPayouts(ctx context.Context, affiliateID uint) (int, error) {
	if affiliateID == 0 {
		return 0, fmt.Errorf("%w: affiliate id is required", ErrInvalidInput)
	}
	if s.enqueuer == nil {
		return 0, ErrQueueUnavailable
	}
	orders, err := s.orderRepo.ListUnpaidByAffiliate(ctx, affiliateID)
	if err != nil {
		return 0, classifyStorageError(err)
	}

	dispatched := 0
	for _, order := range orders {
		payload := queue.OrderPayoutPayload{
			OrderID:         order.ID,
			ExternalOrderID: order.ExternalOrderID,
		}
		if err := s.enqueuer.EnqueueOrderPayout(ctx, payload); err != nil {
			if errors.Is(err, queue.ErrQueueDisabled) {
				err = fmt.Errorf("%w: %w", ErrQueueUnavailable, err)
			}
			logger.Errorw("payout_dispatch_failed",
				"affiliate_id", affiliateID,
				"order_id", order.ID,
				"dispatched", dispatched,
				"error", err,
			)
			return dispatched, err
		}
		dispatched++
		metrics.PayoutTasksEnqueuedTotal.Inc()
	}
	logger.Infow("payouts_dispatched", "affiliate_id", affiliateID, "dispatched", dispatched)
	return dispatched, nil
}

// DispatchMerchantPayouts 商户为自己名下推广者发起结算
func (s *PayoutService) DispatchMerchantPayouts(ctx context.Context, merchantID, affiliateID uint) (int, error) {
	affiliate, err := s.affiliateRepo.GetByID(ctx, affiliateID)
	if err != nil {
		return 0, classifyStorageError(err)
	}
	if affiliate == nil || affiliate.MerchantID != merchantID {
		return 0, ErrNotFound
	}
	return s.DispatchPayouts(ctx, affiliate.ID)
}

// CompleteOrderPayout 打款任务执行：锁定订单，已结算则跳过，否则打款并标记已结算。
// 打款请求以外部订单号作为幂等键，事务回滚后的重试不会重复入账。
func (s *PayoutService) CompleteOrderPayout(ctx context.Context, orderID uint) error {
	if orderID == 0 {
		return fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	if s.sender == nil {
		return ErrPayoutSenderMissing
	}

	result := "paid"
	err := s.orderRepo.Transaction(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrNotFound
		}
		if order.PayoutStatus == constants.PayoutStatusPaid {
			result = "skipped"
			return nil
		}
		email := ""
		if order.Affiliate != nil {
			email = order.Affiliate.User.Email
		}
		if err := s.sender.SendPayout(ctx, merchantapi.PayoutRequest{
			OrderID:         order.ID,
			ExternalOrderID: order.ExternalOrderID,
			Email:           email,
			Amount:          order.CommissionOwed.Decimal,
		}); err != nil {
			return err
		}
		affected, err := orderRepo.MarkPaid(ctx, order.ID, time.Now().UTC())
		if err != nil {
			return err
		}
		if affected == 0 {
			result = "skipped"
		}
		return nil
	})
	if err != nil {
		metrics.PayoutsCompletedTotal.WithLabelValues("failed").Inc()
		logger.Errorw("order_payout_failed", "order_id", orderID, "error", err)
		return err
	}

	metrics.PayoutsCompletedTotal.WithLabelValues(result).Inc()
	logger.Infow("order_payout_completed", "order_id", orderID, "result", result)
	if result == "paid" {
		if err := cache.BumpStatsGeneration(ctx); err != nil {
			logger.Warnw("stats_cache_invalidate_failed", "order_id", orderID, "error", err)
		}
	}
	return nil
}
