package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/affiliate-ledger/internal/constants"
)

// StatsGeneration 读取统计缓存代数，订单写入或打款后递增使旧窗口失效
func StatsGeneration(ctx context.Context) (int64, error) {
	return GetInt64(ctx, constants.CacheKeyStatsGeneration)
}

// BumpStatsGeneration 递增统计缓存代数
func BumpStatsGeneration(ctx context.Context) error {
	_, err := Incr(ctx, constants.CacheKeyStatsGeneration)
	return err
}

// StatsWindowKey 统计窗口缓存 key
func StatsWindowKey(generation int64, merchantID uint, from, to time.Time) string {
	return fmt.Sprintf(constants.CacheKeyStatsWindowShape, generation, merchantID, from.UTC().Unix(), to.UTC().Unix())
}
