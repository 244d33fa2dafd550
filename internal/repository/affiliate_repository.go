package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/affiliate-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateRepository 推广者数据访问接口
type AffiliateRepository interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	GetByID(ctx context.Context, id uint) (*models.Affiliate, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Affiliate, error)
	GetByDiscountCode(ctx context.Context, merchantID uint, code string) (*models.Affiliate, error)
	Create(ctx context.Context, affiliate *models.Affiliate) error
	ListByMerchant(ctx context.Context, merchantID uint) ([]models.Affiliate, error)
}

// GormAffiliateRepository GORM 推广者仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广者仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// GetByID 按 ID 获取推广者
func (r *GormAffiliateRepository) GetByID(ctx context.Context, id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// GetByUserID 按账号获取推广者
func (r *GormAffiliateRepository) GetByUserID(ctx context.Context, userID uint) (*models.Affiliate, error) {
	if userID == 0 {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

// GetByDiscountCode 按推广码获取推广者，限定在同一商户下
func (r *GormAffiliateRepository) GetByDiscountCode(ctx context.Context, merchantID uint, code string) (*models.Affiliate, error) {
	code = strings.TrimSpace(code)
	if merchantID == 0 || code == "" {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Where("merchant_id = ? AND discount_code = ?", merchantID, code))
}

// Create 创建推广者
func (r *GormAffiliateRepository) Create(ctx context.Context, affiliate *models.Affiliate) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(affiliate).Error
}

// ListByMerchant 列出商户下全部推广者（附带账号）
func (r *GormAffiliateRepository) ListByMerchant(ctx context.Context, merchantID uint) ([]models.Affiliate, error) {
	if merchantID == 0 {
		return []models.Affiliate{}, nil
	}
	var rows []models.Affiliate
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("merchant_id = ?", merchantID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormAffiliateRepository) first(query *gorm.DB) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := query.First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}
