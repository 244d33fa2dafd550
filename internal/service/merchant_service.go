package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/models"
	"github.com/affiliate-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MerchantService 商户目录服务
type MerchantService struct {
	repo     repository.MerchantRepository
	userRepo repository.UserRepository
}

// NewMerchantService 创建商户服务
func NewMerchantService(repo repository.MerchantRepository, userRepo repository.UserRepository) *MerchantService {
	return &MerchantService{repo: repo, userRepo: userRepo}
}

// MerchantRegisterInput 商户注册输入
type MerchantRegisterInput struct {
	Domain                string
	Name                  string
	Email                 string
	APIKey                string
	DefaultCommissionRate decimal.Decimal
}

// FindByDomain 按店铺域名查找商户，tx 为空时使用默认连接
func (s *MerchantService) FindByDomain(ctx context.Context, tx *gorm.DB, domain string) (*models.Merchant, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, fmt.Errorf("%w: merchant domain is required", ErrInvalidInput)
	}
	merchant, err := s.repo.WithTx(tx).GetByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, ErrUnknownMerchant
	}
	return merchant, nil
}

// GetByID 按 ID 获取商户
func (s *MerchantService) GetByID(ctx context.Context, id uint) (*models.Merchant, error) {
	merchant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, ErrNotFound
	}
	return merchant, nil
}

// Authenticate 校验商户邮箱与 API Key
func (s *MerchantService) Authenticate(ctx context.Context, email, apiKey string) (*models.Merchant, error) {
	if strings.TrimSpace(email) == "" || apiKey == "" {
		return nil, ErrUnauthorized
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Type != constants.UserTypeMerchant || user.PasswordHash == "" {
		return nil, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(apiKey)); err != nil {
		return nil, ErrUnauthorized
	}
	merchant, err := s.repo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, ErrUnauthorized
	}
	return merchant, nil
}

// Register 注册商户账号与商户资料，API Key 以 bcrypt 哈希保存
func (s *MerchantService) Register(ctx context.Context, input MerchantRegisterInput) (*models.Merchant, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	domain := strings.ToLower(strings.TrimSpace(input.Domain))
	name := strings.TrimSpace(input.Name)
	if email == "" || domain == "" || input.APIKey == "" {
		return nil, fmt.Errorf("%w: email, domain and api key are required", ErrInvalidInput)
	}
	rate := input.DefaultCommissionRate
	if rate.IsZero() {
		rate = decimal.RequireFromString(constants.DefaultCommissionRate)
	}
	if err := validateCommissionRate(rate); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.APIKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var merchant *models.Merchant
	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		user := &models.User{
			Email:        email,
			Name:         name,
			Type:         constants.UserTypeMerchant,
			PasswordHash: string(hash),
		}
		if err := s.userRepo.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		merchant = &models.Merchant{
			UserID:                user.ID,
			Domain:                domain,
			DisplayName:           name,
			DefaultCommissionRate: rate.Round(constants.CommissionRateScale),
		}
		return s.repo.WithTx(tx).Create(ctx, merchant)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: merchant email or domain already registered", ErrIdentityConflict)
		}
		return nil, err
	}
	logger.Infow("merchant_registered", "merchant_id", merchant.ID, "domain", merchant.Domain)
	return merchant, nil
}
