package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/affiliate-ledger/internal/broker"
	"github.com/affiliate-ledger/internal/cache"
	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/metrics"
	"github.com/affiliate-ledger/internal/models"
	"github.com/affiliate-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// errOutcomeDecided 事务内已得出非创建结果（重复或未知商户），用于回滚
var errOutcomeDecided = errors.New("ingestion outcome decided")

// MerchantDirectory 按域名解析商户
type MerchantDirectory interface {
	FindByDomain(ctx context.Context, tx *gorm.DB, domain string) (*models.Merchant, error)
}

// AffiliateResolver 推广者解析（创建优先，推广码兜底）
type AffiliateResolver interface {
	ResolveOrCreate(ctx context.Context, tx *gorm.DB, input AffiliateResolveInput) (AffiliateResolution, error)
	FindByDiscountCode(ctx context.Context, tx *gorm.DB, merchantID uint, code string) (*models.Affiliate, error)
}

// OrderEvent 第三方订单 webhook 事件
type OrderEvent struct {
	OrderID        string
	Subtotal       decimal.Decimal
	MerchantDomain string
	DiscountCode   string
	CustomerEmail  string
	CustomerName   string
}

// IngestOutcome 单次订单接入结果
type IngestOutcome struct {
	Status string
	Order  *models.Order
	Err    error
}

// Succeeded 新建或重复均视为成功确认
func (o IngestOutcome) Succeeded() bool {
	return o.Status == constants.IngestStatusCreated || o.Status == constants.IngestStatusSkippedDuplicate
}

// OrderService 订单接入服务
type OrderService struct {
	orderRepo  repository.OrderRepository
	merchants  MerchantDirectory
	affiliates AffiliateResolver
	publisher  broker.Publisher
	timeout    time.Duration
}

// NewOrderService 创建订单接入服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	merchants MerchantDirectory,
	affiliates AffiliateResolver,
	publisher broker.Publisher,
	timeout time.Duration,
) *OrderService {
	if timeout <= 0 {
		timeout = constants.DefaultIngestTimeoutSecs * time.Second
	}
	if publisher == nil {
		publisher = broker.NewLogPublisher()
	}
	return &OrderService{
		orderRepo:  orderRepo,
		merchants:  merchants,
		affiliates: affiliates,
		publisher:  publisher,
		timeout:    timeout,
	}
}

// ProcessEvent 处理一条订单事件：去重、解析商户与推广者、计算佣金并在单个事务内落库
func (s *OrderService) ProcessEvent(ctx context.Context, event OrderEvent) IngestOutcome {
	startedAt := time.Now()
	outcome := s.processEvent(ctx, event)
	metrics.OrdersIngestedTotal.WithLabelValues(outcome.Status).Inc()
	metrics.IngestLatency.Observe(time.Since(startedAt).Seconds())
	return outcome
}

func (s *OrderService) processEvent(ctx context.Context, event OrderEvent) IngestOutcome {
	event, err := normalizeOrderEvent(event)
	if err != nil {
		logger.Warnw("order_ingest_invalid", "order_id", event.OrderID, "error", err)
		return failedOutcome(err)
	}

	existing, err := s.orderRepo.GetByExternalID(ctx, event.OrderID)
	if err != nil {
		return failedOutcome(classifyStorageError(err))
	}
	if existing != nil {
		return duplicateOutcome(existing)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var outcome IngestOutcome
	err = s.orderRepo.Transaction(attemptCtx, func(tx *gorm.DB) error {
		var txErr error
		outcome, txErr = s.ingestTx(attemptCtx, tx, event)
		return txErr
	})
	if err == nil {
		s.afterCommit(ctx, outcome.Order)
		return outcome
	}

	if errors.Is(err, errOutcomeDecided) {
		switch outcome.Status {
		case constants.IngestStatusRejectedUnknownMerchant:
			logger.Warnw("order_ingest_unknown_merchant",
				"order_id", event.OrderID,
				"merchant_domain", event.MerchantDomain,
			)
			return outcome
		case constants.IngestStatusSkippedDuplicate:
			if outcome.Order == nil {
				existing, lookupErr := s.orderRepo.GetByExternalID(ctx, event.OrderID)
				if lookupErr != nil {
					logger.Warnw("order_ingest_duplicate_lookup_failed",
						"order_id", event.OrderID,
						"error", lookupErr,
					)
				}
				outcome.Order = existing
			}
			return duplicateOutcome(outcome.Order)
		}
	}

	// 并发投递时另一次尝试可能已提交同一订单
	if winner, lookupErr := s.orderRepo.GetByExternalID(ctx, event.OrderID); lookupErr == nil && winner != nil {
		return duplicateOutcome(winner)
	}

	failure := classifyStorageError(err)
	if attemptCtx.Err() != nil && !errors.Is(failure, ErrIngestionTimeout) {
		failure = fmt.Errorf("%w: %w", ErrIngestionTimeout, err)
	}
	logger.Errorw("order_ingest_failed",
		"order_id", event.OrderID,
		"merchant_domain", event.MerchantDomain,
		"retryable", IsRetryable(failure),
		"error", failure,
	)
	return failedOutcome(failure)
}

// ingestTx 事务内步骤；返回 error 即回滚整个尝试
func (s *OrderService) ingestTx(ctx context.Context, tx *gorm.DB, event OrderEvent) (IngestOutcome, error) {
	orderRepo := s.orderRepo.WithTx(tx)
	existing, err := orderRepo.GetByExternalID(ctx, event.OrderID)
	if err != nil {
		return IngestOutcome{}, err
	}
	if existing != nil {
		return IngestOutcome{Status: constants.IngestStatusSkippedDuplicate, Order: existing}, errOutcomeDecided
	}

	merchant, err := s.merchants.FindByDomain(ctx, tx, event.MerchantDomain)
	if err != nil {
		if errors.Is(err, ErrUnknownMerchant) {
			return IngestOutcome{
				Status: constants.IngestStatusRejectedUnknownMerchant,
				Err:    fmt.Errorf("%w: %s", ErrUnknownMerchant, event.MerchantDomain),
			}, errOutcomeDecided
		}
		return IngestOutcome{}, err
	}

	affiliate, err := s.resolveAffiliate(ctx, tx, merchant, event)
	if err != nil {
		return IngestOutcome{}, err
	}

	// 佣金按原始金额计算，仅落库的订单金额保留两位
	commission, err := CalculateCommission(event.Subtotal, affiliate.CommissionRate)
	if err != nil {
		return IngestOutcome{}, err
	}

	order := &models.Order{
		ExternalOrderID: event.OrderID,
		Subtotal:        models.NewMoneyFromDecimal(event.Subtotal),
		DiscountCode:    event.DiscountCode,
		CustomerEmail:   event.CustomerEmail,
		CommissionRate:  affiliate.CommissionRate,
		CommissionOwed:  models.NewMoneyFromDecimal(commission),
		MerchantID:      merchant.ID,
		AffiliateID:     affiliate.ID,
		PayoutStatus:    constants.PayoutStatusUnpaid,
		CreatedAt:       time.Now().UTC(),
	}
	if err := orderRepo.Create(ctx, order); err != nil {
		if isUniqueViolation(err) {
			return IngestOutcome{Status: constants.IngestStatusSkippedDuplicate}, errOutcomeDecided
		}
		return IngestOutcome{}, err
	}
	order.Merchant = merchant
	order.Affiliate = affiliate
	return IngestOutcome{Status: constants.IngestStatusCreated, Order: order}, nil
}

// resolveAffiliate 先按顾客身份解析或创建，失败后按本商户推广码兜底
func (s *OrderService) resolveAffiliate(ctx context.Context, tx *gorm.DB, merchant *models.Merchant, event OrderEvent) (*models.Affiliate, error) {
	resolution, err := s.affiliates.ResolveOrCreate(ctx, tx, AffiliateResolveInput{
		Merchant:       merchant,
		Email:          event.CustomerEmail,
		Name:           event.CustomerName,
		CommissionRate: merchant.DefaultCommissionRate,
	})
	if err != nil {
		return nil, err
	}
	if resolution.Resolved() {
		return resolution.Affiliate, nil
	}

	fallback, err := s.affiliates.FindByDiscountCode(ctx, tx, merchant.ID, event.DiscountCode)
	if err != nil {
		return nil, err
	}
	if fallback == nil {
		metrics.AffiliateFallbackTotal.WithLabelValues("miss").Inc()
		return nil, fmt.Errorf("%w: %w", ErrAffiliateUnresolved, resolution.Failure)
	}
	metrics.AffiliateFallbackTotal.WithLabelValues("hit").Inc()
	logger.Infow("affiliate_resolved_by_discount_code",
		"order_id", event.OrderID,
		"affiliate_id", fallback.ID,
		"discount_code", event.DiscountCode,
		"reason", resolution.Failure,
	)
	return fallback, nil
}

// afterCommit 提交后的副作用，失败只记录日志不影响接入结果
func (s *OrderService) afterCommit(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	logger.Infow("commission_logged",
		"order_id", order.ID,
		"external_order_id", order.ExternalOrderID,
		"affiliate_id", order.AffiliateID,
		"commission_owed", order.CommissionOwed.String(),
	)
	commission, _ := order.CommissionOwed.Float64()
	metrics.CommissionLoggedTotal.Add(commission)

	event := broker.CommissionLoggedEvent{
		EventType:       constants.EventCommissionLogged,
		OrderID:         order.ID,
		ExternalOrderID: order.ExternalOrderID,
		MerchantID:      order.MerchantID,
		AffiliateID:     order.AffiliateID,
		Subtotal:        order.Subtotal.String(),
		CommissionRate:  order.CommissionRate.StringFixed(constants.CommissionRateScale),
		CommissionOwed:  order.CommissionOwed.String(),
		OccurredAt:      order.CreatedAt,
	}
	if err := s.publisher.PublishCommissionLogged(ctx, event); err != nil {
		logger.Warnw("commission_event_publish_failed", "order_id", order.ID, "error", err)
	}
	if err := cache.BumpStatsGeneration(ctx); err != nil {
		logger.Warnw("stats_cache_invalidate_failed", "order_id", order.ID, "error", err)
	}
}

func normalizeOrderEvent(event OrderEvent) (OrderEvent, error) {
	event.OrderID = strings.TrimSpace(event.OrderID)
	event.MerchantDomain = strings.ToLower(strings.TrimSpace(event.MerchantDomain))
	event.DiscountCode = strings.TrimSpace(event.DiscountCode)
	event.CustomerEmail = strings.ToLower(strings.TrimSpace(event.CustomerEmail))
	event.CustomerName = strings.TrimSpace(event.CustomerName)

	switch {
	case event.OrderID == "":
		return event, fmt.Errorf("%w: order_id is required", ErrInvalidInput)
	case event.MerchantDomain == "":
		return event, fmt.Errorf("%w: merchant_domain is required", ErrInvalidInput)
	case event.CustomerEmail == "":
		return event, fmt.Errorf("%w: customer_email is required", ErrInvalidInput)
	case event.Subtotal.IsNegative():
		return event, fmt.Errorf("%w: subtotal must not be negative", ErrInvalidInput)
	}
	return event, nil
}

func duplicateOutcome(order *models.Order) IngestOutcome {
	if order != nil {
		logger.Infow("order_ingest_skipped_duplicate", "external_order_id", order.ExternalOrderID)
	}
	return IngestOutcome{Status: constants.IngestStatusSkippedDuplicate, Order: order}
}

func failedOutcome(err error) IngestOutcome {
	return IngestOutcome{Status: constants.IngestStatusFailed, Err: err}
}
