package repository

import (
	"context"
	"errors"

	"github.com/affiliate-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MerchantRepository 商户数据访问接口（接入链路只读）
type MerchantRepository interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) MerchantRepository

	GetByDomain(ctx context.Context, domain string) (*models.Merchant, error)
	GetByID(ctx context.Context, id uint) (*models.Merchant, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Merchant, error)
	Create(ctx context.Context, merchant *models.Merchant) error
}

// GormMerchantRepository GORM 商户仓储
type GormMerchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository 创建商户仓储
func NewMerchantRepository(db *gorm.DB) *GormMerchantRepository {
	return &GormMerchantRepository{db: db}
}

// WithTx 绑定事务
func (r *GormMerchantRepository) WithTx(tx *gorm.DB) MerchantRepository {
	if tx == nil {
		return r
	}
	return &GormMerchantRepository{db: tx}
}

// Transaction 执行事务
func (r *GormMerchantRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// GetByDomain 按店铺域名查询商户
func (r *GormMerchantRepository) GetByDomain(ctx context.Context, domain string) (*models.Merchant, error) {
	normalized := normalizeDomain(domain)
	if normalized == "" {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Where("domain = ?", normalized))
}

// GetByID 按 ID 查询商户
func (r *GormMerchantRepository) GetByID(ctx context.Context, id uint) (*models.Merchant, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// GetByUserID 按商户账号查询商户
func (r *GormMerchantRepository) GetByUserID(ctx context.Context, userID uint) (*models.Merchant, error) {
	if userID == 0 {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

// Create 创建商户
func (r *GormMerchantRepository) Create(ctx context.Context, merchant *models.Merchant) error {
	merchant.Domain = normalizeDomain(merchant.Domain)
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(merchant).Error
}

func (r *GormMerchantRepository) first(query *gorm.DB) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := query.First(&merchant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}
