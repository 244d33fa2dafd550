package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/merchantapi"
	"github.com/affiliate-ledger/internal/metrics"
	"github.com/affiliate-ledger/internal/models"
	"github.com/affiliate-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// errAffiliateCreateAborted 回滚推广者创建保存点的内部信号
var errAffiliateCreateAborted = errors.New("affiliate creation aborted")

// AffiliateService 推广者解析服务
type AffiliateService struct {
	repo     repository.AffiliateRepository
	userRepo repository.UserRepository
	codes    merchantapi.Client
}

// NewAffiliateService 创建推广者服务
func NewAffiliateService(
	repo repository.AffiliateRepository,
	userRepo repository.UserRepository,
	codes merchantapi.Client,
) *AffiliateService {
	return &AffiliateService{
		repo:     repo,
		userRepo: userRepo,
		codes:    codes,
	}
}

// AffiliateResolveInput 推广者解析输入
type AffiliateResolveInput struct {
	Merchant       *models.Merchant
	Email          string
	Name           string
	CommissionRate decimal.Decimal
}

// AffiliateResolution 推广者解析结果。
// Failure 非空表示可降级的失败（身份冲突或推广码签发失败），此时 Affiliate 为空。
type AffiliateResolution struct {
	Affiliate *models.Affiliate
	Created   bool
	Failure   error
}

// Resolved 是否得到推广者
func (r AffiliateResolution) Resolved() bool {
	return r.Failure == nil && r.Affiliate != nil
}

// ResolveOrCreate 在调用方事务内解析或创建推广者。
// 新建的账号与推广者写在嵌套事务（保存点）中，失败时只回滚这部分写入，外层事务随调用方提交或回滚。
// 返回的 error 仅表示不可降级的存储错误。
func (s *AffiliateService) ResolveOrCreate(ctx context.Context, tx *gorm.DB, input AffiliateResolveInput) (AffiliateResolution, error) {
	if tx == nil {
		var resolution AffiliateResolution
		err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
			var err error
			resolution, err = s.ResolveOrCreate(ctx, tx, input)
			return err
		})
		return resolution, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if input.Merchant == nil || input.Merchant.ID == 0 {
		return AffiliateResolution{}, fmt.Errorf("%w: merchant is required", ErrInvalidInput)
	}
	if email == "" {
		return AffiliateResolution{}, fmt.Errorf("%w: affiliate email is required", ErrInvalidInput)
	}
	if err := validateCommissionRate(input.CommissionRate); err != nil {
		return AffiliateResolution{}, err
	}

	existing, err := s.userRepo.WithTx(tx).GetByEmail(ctx, email)
	if err != nil {
		return AffiliateResolution{}, err
	}
	if existing != nil {
		return s.resolveExistingUser(ctx, tx, existing, input.Merchant)
	}
	return s.createAffiliate(ctx, tx, input, email)
}

// FindByDiscountCode 按推广码查找同一商户下的推广者
func (s *AffiliateService) FindByDiscountCode(ctx context.Context, tx *gorm.DB, merchantID uint, code string) (*models.Affiliate, error) {
	return s.repo.WithTx(tx).GetByDiscountCode(ctx, merchantID, code)
}

// ListByMerchant 列出商户名下推广者
func (s *AffiliateService) ListByMerchant(ctx context.Context, merchantID uint) ([]models.Affiliate, error) {
	rows, err := s.repo.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, classifyStorageError(err)
	}
	return rows, nil
}

// resolveExistingUser 邮箱已注册：仅当其为本商户推广者时复用
func (s *AffiliateService) resolveExistingUser(ctx context.Context, tx *gorm.DB, user *models.User, merchant *models.Merchant) (AffiliateResolution, error) {
	if user.Type != constants.UserTypeAffiliate {
		return AffiliateResolution{
			Failure: fmt.Errorf("%w: email registered as %s", ErrIdentityConflict, user.Type),
		}, nil
	}
	affiliate, err := s.repo.WithTx(tx).GetByUserID(ctx, user.ID)
	if err != nil {
		return AffiliateResolution{}, err
	}
	if affiliate == nil || affiliate.MerchantID != merchant.ID {
		return AffiliateResolution{
			Failure: fmt.Errorf("%w: email not attributable to merchant %d", ErrIdentityConflict, merchant.ID),
		}, nil
	}
	return AffiliateResolution{Affiliate: affiliate}, nil
}

func (s *AffiliateService) createAffiliate(ctx context.Context, tx *gorm.DB, input AffiliateResolveInput, email string) (AffiliateResolution, error) {
	var created *models.Affiliate
	var failure error
	err := tx.Transaction(func(inner *gorm.DB) error {
		user := &models.User{
			Email: email,
			Name:  strings.TrimSpace(input.Name),
			Type:  constants.UserTypeAffiliate,
		}
		if err := s.userRepo.WithTx(inner).Create(ctx, user); err != nil {
			if isUniqueViolation(err) {
				failure = fmt.Errorf("%w: email registered concurrently", ErrIdentityConflict)
				return errAffiliateCreateAborted
			}
			return err
		}

		code, err := s.issueDiscountCode(ctx, input.Merchant)
		if err != nil {
			failure = err
			return errAffiliateCreateAborted
		}

		affiliate := &models.Affiliate{
			MerchantID:     input.Merchant.ID,
			UserID:         user.ID,
			CommissionRate: input.CommissionRate.Round(constants.CommissionRateScale),
			DiscountCode:   code,
		}
		if err := s.repo.WithTx(inner).Create(ctx, affiliate); err != nil {
			if isUniqueViolation(err) {
				failure = fmt.Errorf("%w: discount code %s already assigned", ErrCodeIssuance, code)
				return errAffiliateCreateAborted
			}
			return err
		}
		affiliate.User = *user
		created = affiliate
		return nil
	})
	if failure != nil {
		logger.Warnw("affiliate_create_failed",
			"merchant_id", input.Merchant.ID,
			"email", email,
			"error", failure,
		)
		return AffiliateResolution{Failure: failure}, nil
	}
	if err != nil {
		return AffiliateResolution{}, err
	}

	metrics.AffiliatesCreatedTotal.Inc()
	logger.Infow("affiliate_created",
		"affiliate_id", created.ID,
		"merchant_id", created.MerchantID,
		"email", email,
		"discount_code", created.DiscountCode,
	)
	return AffiliateResolution{Affiliate: created, Created: true}, nil
}

// issueDiscountCode 向商户平台申请推广码，每次创建仅调用一次
func (s *AffiliateService) issueDiscountCode(ctx context.Context, merchant *models.Merchant) (string, error) {
	if s.codes == nil {
		return "", fmt.Errorf("%w: code issuer not configured", ErrCodeIssuance)
	}
	code, err := s.codes.CreateDiscountCode(ctx, merchantapi.Merchant{
		ID:     merchant.ID,
		Domain: merchant.Domain,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCodeIssuance, err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: empty code", ErrCodeIssuance)
	}
	return code, nil
}
