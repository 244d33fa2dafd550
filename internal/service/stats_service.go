package service

import (
	"context"
	"time"

	"github.com/affiliate-ledger/internal/cache"
	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/models"
	"github.com/affiliate-ledger/internal/repository"

	"github.com/shopspring/decimal"
)

// OrderStats 订单统计结果
type OrderStats struct {
	Count          int64        `json:"count"`
	CommissionOwed models.Money `json:"commission_owed"`
	Revenue        models.Money `json:"revenue"`
}

// StatsService 订单统计服务
type StatsService struct {
	repo     repository.StatsRepository
	cacheTTL time.Duration
}

// NewStatsService 创建订单统计服务
func NewStatsService(repo repository.StatsRepository, cacheTTL time.Duration) *StatsService {
	return &StatsService{repo: repo, cacheTTL: cacheTTL}
}

// OrderStats 统计 [from, to] 内全部订单
func (s *StatsService) OrderStats(ctx context.Context, from, to time.Time) (OrderStats, error) {
	return s.MerchantOrderStats(ctx, 0, from, to)
}

// MerchantOrderStats 统计 [from, to] 内指定商户订单；from 晚于 to 时返回零值
func (s *StatsService) MerchantOrderStats(ctx context.Context, merchantID uint, from, to time.Time) (OrderStats, error) {
	from = from.UTC()
	to = to.UTC()
	if from.After(to) {
		return zeroOrderStats(), nil
	}

	cacheKey := ""
	if s.cacheTTL > 0 && cache.Enabled() {
		generation, err := cache.StatsGeneration(ctx)
		if err != nil {
			logger.Warnw("stats_cache_generation_failed", "error", err)
		} else {
			cacheKey = cache.StatsWindowKey(generation, merchantID, from, to)
			var cached OrderStats
			hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
			if cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	row, err := s.repo.GetOrderStats(ctx, merchantID, from, to)
	if err != nil {
		return OrderStats{}, classifyStorageError(err)
	}
	stats := OrderStats{
		Count:          row.Count,
		CommissionOwed: models.NewMoneyFromDecimal(row.CommissionOwed),
		Revenue:        models.NewMoneyFromDecimal(row.Revenue),
	}
	if cacheKey != "" {
		_ = cache.SetJSON(ctx, cacheKey, stats, s.cacheTTL)
	}
	return stats, nil
}

func zeroOrderStats() OrderStats {
	return OrderStats{
		CommissionOwed: models.NewMoneyFromDecimal(decimal.Zero),
		Revenue:        models.NewMoneyFromDecimal(decimal.Zero),
	}
}
