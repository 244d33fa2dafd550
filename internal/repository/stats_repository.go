package repository

import (
	"context"
	"time"

	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/models"

	"gorm.io/gorm"
)

// StatsRepository 订单统计数据访问接口
type StatsRepository interface {
	GetOrderStats(ctx context.Context, merchantID uint, from, to time.Time) (OrderStatsRow, error)
}

// GormStatsRepository GORM 统计仓储
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository 创建统计仓储
func NewStatsRepository(db *gorm.DB) *GormStatsRepository {
	return &GormStatsRepository{db: db}
}

// GetOrderStats 汇总时间窗口 [from, to] 内的订单数、未结算佣金与营收。
// merchantID 为 0 时统计全部商户。
func (r *GormStatsRepository) GetOrderStats(ctx context.Context, merchantID uint, from, to time.Time) (OrderStatsRow, error) {
	row := OrderStatsRow{}
	if from.After(to) {
		return row, nil
	}
	query := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("created_at >= ? AND created_at <= ?", from, to)
	if merchantID != 0 {
		query = query.Where("merchant_id = ?", merchantID)
	}
	if err := query.Select(
		"COUNT(*) AS count, "+
			"COALESCE(SUM(CASE WHEN payout_status = ? THEN commission_owed ELSE 0 END), 0) AS commission_owed, "+
			"COALESCE(SUM(subtotal), 0) AS revenue",
		constants.PayoutStatusUnpaid,
	).Scan(&row).Error; err != nil {
		return OrderStatsRow{}, err
	}
	row.CommissionOwed = row.CommissionOwed.Round(constants.MoneyScale)
	row.Revenue = row.Revenue.Round(constants.MoneyScale)
	return row, nil
}
