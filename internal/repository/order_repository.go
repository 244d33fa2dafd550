package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) OrderRepository

	GetByExternalID(ctx context.Context, externalOrderID string) (*models.Order, error)
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	ListUnpaidByAffiliate(ctx context.Context, affiliateID uint) ([]models.Order, error)
	MarkPaid(ctx context.Context, id uint, paidAt time.Time) (int64, error)
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// GetByExternalID 根据外部订单号获取订单
func (r *GormOrderRepository) GetByExternalID(ctx context.Context, externalOrderID string) (*models.Order, error) {
	externalOrderID = strings.TrimSpace(externalOrderID)
	if externalOrderID == "" {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Where("external_order_id = ?", externalOrderID))
}

// GetByID 根据 ID 获取订单（附带推广者账号，用于打款）
func (r *GormOrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Preload("Affiliate.User").Where("id = ?", id))
}

// GetByIDForUpdate 根据 ID 获取并锁定订单
func (r *GormOrderRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(forUpdate(r.db.WithContext(ctx)).Preload("Affiliate.User").Where("id = ?", id))
}

// Create 创建订单
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

// ListUnpaidByAffiliate 列出推广者未结算订单，按 ID 升序
func (r *GormOrderRepository) ListUnpaidByAffiliate(ctx context.Context, affiliateID uint) ([]models.Order, error) {
	if affiliateID == 0 {
		return []models.Order{}, nil
	}
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Where("affiliate_id = ? AND payout_status = ?", affiliateID, constants.PayoutStatusUnpaid).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkPaid 将未结算订单标记为已结算，返回受影响行数（已结算时为 0）
func (r *GormOrderRepository) MarkPaid(ctx context.Context, id uint, paidAt time.Time) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payout_status = ?", id, constants.PayoutStatusUnpaid).
		Updates(map[string]interface{}{
			"payout_status": constants.PayoutStatusPaid,
			"paid_at":       paidAt,
			"updated_at":    paidAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *GormOrderRepository) first(query *gorm.DB) (*models.Order, error) {
	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}
