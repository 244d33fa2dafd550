package service

import (
	"context"
	"errors"
	"testing"

	"github.com/affiliate-ledger/internal/models"
	"github.com/affiliate-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestAffiliateService(db *gorm.DB, api *stubMerchantAPI) *AffiliateService {
	return NewAffiliateService(repository.NewAffiliateRepository(db), repository.NewUserRepository(db), api)
}

func TestResolveOrCreateWithoutTransaction(t *testing.T) {
	db := setupServiceTestDB(t)
	merchant := createServiceTestMerchant(t, db, "solo.example.com", "owner@solo.example.com", "0.1")
	api := &stubMerchantAPI{codes: []string{"SOLO0001"}}
	svc := newTestAffiliateService(db, api)

	resolution, err := svc.ResolveOrCreate(context.Background(), nil, AffiliateResolveInput{
		Merchant:       merchant,
		Email:          " New.Affiliate@Example.com ",
		Name:           "New Affiliate",
		CommissionRate: decimal.RequireFromString("0.15"),
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !resolution.Resolved() || !resolution.Created {
		t.Fatalf("expected created affiliate, got %+v", resolution)
	}
	if resolution.Affiliate.DiscountCode != "SOLO0001" {
		t.Fatalf("unexpected discount code: %s", resolution.Affiliate.DiscountCode)
	}
	if resolution.Affiliate.User.Email != "new.affiliate@example.com" {
		t.Fatalf("email should be normalized, got %s", resolution.Affiliate.User.Email)
	}

	again, err := svc.ResolveOrCreate(context.Background(), nil, AffiliateResolveInput{
		Merchant:       merchant,
		Email:          "new.affiliate@example.com",
		CommissionRate: decimal.RequireFromString("0.15"),
	})
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if again.Created || again.Affiliate == nil || again.Affiliate.ID != resolution.Affiliate.ID {
		t.Fatalf("second resolve should reuse affiliate, got %+v", again)
	}
	if api.codeCalls() != 1 {
		t.Fatalf("code should be issued once, got %d", api.codeCalls())
	}
}

func TestResolveOrCreateConflictsWithOtherMerchantAffiliate(t *testing.T) {
	db := setupServiceTestDB(t)
	first := createServiceTestMerchant(t, db, "first.example.com", "owner@first.example.com", "0.1")
	second := createServiceTestMerchant(t, db, "second.example.com", "owner@second.example.com", "0.1")
	createServiceTestAffiliate(t, db, first.ID, "shared@example.com", "FIRST001", "0.1")
	svc := newTestAffiliateService(db, &stubMerchantAPI{})

	resolution, err := svc.ResolveOrCreate(context.Background(), nil, AffiliateResolveInput{
		Merchant:       second,
		Email:          "shared@example.com",
		CommissionRate: decimal.RequireFromString("0.1"),
	})
	if err != nil {
		t.Fatalf("resolve returned storage error: %v", err)
	}
	if resolution.Resolved() || !errors.Is(resolution.Failure, ErrIdentityConflict) {
		t.Fatalf("expected identity conflict, got %+v", resolution)
	}
}

func TestResolveOrCreateDiscountCodeCollision(t *testing.T) {
	db := setupServiceTestDB(t)
	merchant := createServiceTestMerchant(t, db, "clash.example.com", "owner@clash.example.com", "0.1")
	createServiceTestAffiliate(t, db, merchant.ID, "taken@example.com", "TAKEN001", "0.1")
	svc := newTestAffiliateService(db, &stubMerchantAPI{codes: []string{"TAKEN001"}})

	resolution, err := svc.ResolveOrCreate(context.Background(), nil, AffiliateResolveInput{
		Merchant:       merchant,
		Email:          "fresh@example.com",
		CommissionRate: decimal.RequireFromString("0.1"),
	})
	if err != nil {
		t.Fatalf("resolve returned storage error: %v", err)
	}
	if resolution.Resolved() || !errors.Is(resolution.Failure, ErrCodeIssuance) {
		t.Fatalf("expected code issuance failure, got %+v", resolution)
	}
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", "fresh@example.com").Count(&count).Error; err != nil {
		t.Fatalf("count user failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("speculative user should be rolled back")
	}
}

func TestResolveOrCreateRejectsInvalidRate(t *testing.T) {
	db := setupServiceTestDB(t)
	merchant := createServiceTestMerchant(t, db, "rate.example.com", "owner@rate.example.com", "0.1")
	svc := newTestAffiliateService(db, &stubMerchantAPI{})

	_, err := svc.ResolveOrCreate(context.Background(), nil, AffiliateResolveInput{
		Merchant:       merchant,
		Email:          "someone@example.com",
		CommissionRate: decimal.RequireFromString("1.5"),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAffiliateListByMerchant(t *testing.T) {
	db := setupServiceTestDB(t)
	merchant := createServiceTestMerchant(t, db, "list.example.com", "owner@list.example.com", "0.1")
	other := createServiceTestMerchant(t, db, "elsewhere.example.com", "owner@elsewhere.example.com", "0.1")
	createServiceTestAffiliate(t, db, merchant.ID, "a@example.com", "LIST0001", "0.1")
	createServiceTestAffiliate(t, db, merchant.ID, "b@example.com", "LIST0002", "0.2")
	createServiceTestAffiliate(t, db, other.ID, "c@example.com", "LIST0003", "0.1")
	svc := newTestAffiliateService(db, &stubMerchantAPI{})

	rows, err := svc.ListByMerchant(context.Background(), merchant.ID)
	if err != nil {
		t.Fatalf("list affiliates failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 affiliates, got %d", len(rows))
	}
	if rows[0].DiscountCode != "LIST0001" || rows[0].User.Email != "a@example.com" {
		t.Fatalf("unexpected first affiliate: %+v", rows[0])
	}
}

func TestResolveOrCreateEmailRegisteredConcurrently(t *testing.T) {
	db := setupServiceTestDB(t)
	merchant := createServiceTestMerchant(t, db, "late.example.com", "owner@late.example.com", "0.1")
	createServiceTestAffiliate(t, db, merchant.ID, "late@example.com", "LATE0001", "0.1")
	api := &stubMerchantAPI{}
	userRepo := &lateUserRepository{UserRepository: repository.NewUserRepository(db), hiddenEmail: "late@example.com"}
	svc := NewAffiliateService(repository.NewAffiliateRepository(db), userRepo, api)

	resolution, err := svc.ResolveOrCreate(context.Background(), nil, AffiliateResolveInput{
		Merchant:       merchant,
		Email:          "late@example.com",
		CommissionRate: decimal.RequireFromString("0.1"),
	})
	if err != nil {
		t.Fatalf("unique violation should not surface as storage error: %v", err)
	}
	if resolution.Resolved() || !errors.Is(resolution.Failure, ErrIdentityConflict) {
		t.Fatalf("expected identity conflict, got %+v", resolution)
	}
	if api.codeCalls() != 0 {
		t.Fatalf("code must not be issued when the user insert fails, got %d", api.codeCalls())
	}
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", "late@example.com").Count(&count).Error; err != nil {
		t.Fatalf("count user failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the committed user only, got %d", count)
	}
}
