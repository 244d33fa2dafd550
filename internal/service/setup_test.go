package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/affiliate-ledger/internal/broker"
	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/merchantapi"
	"github.com/affiliate-ledger/internal/models"
	"github.com/affiliate-ledger/internal/queue"
	"github.com/affiliate-ledger/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// setupServiceTestDB 单连接内存库，写入串行化
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// lateUserRepository 按邮箱查询时看不到指定账号，插入时由唯一索引拦截
type lateUserRepository struct {
	repository.UserRepository
	hiddenEmail string
}

func (r *lateUserRepository) WithTx(tx *gorm.DB) repository.UserRepository {
	return &lateUserRepository{UserRepository: r.UserRepository.WithTx(tx), hiddenEmail: r.hiddenEmail}
}

func (r *lateUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == r.hiddenEmail {
		return nil, nil
	}
	return r.UserRepository.GetByEmail(ctx, email)
}

type stubMerchantAPI struct {
	mu      sync.Mutex
	codes   []string
	codeErr error
	block   bool
	calls   int
	payouts []merchantapi.PayoutRequest
	sendErr error
}

func (s *stubMerchantAPI) CreateDiscountCode(ctx context.Context, _ merchantapi.Merchant) (string, error) {
	s.mu.Lock()
	s.calls++
	calls := s.calls
	block := s.block
	s.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.codeErr != nil {
		return "", s.codeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) > 0 {
		code := s.codes[0]
		s.codes = s.codes[1:]
		return code, nil
	}
	return fmt.Sprintf("GEN%05d", calls), nil
}

func (s *stubMerchantAPI) SendPayout(_ context.Context, req merchantapi.PayoutRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.payouts = append(s.payouts, req)
	return nil
}

func (s *stubMerchantAPI) codeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubPublisher struct {
	mu     sync.Mutex
	events []broker.CommissionLoggedEvent
}

func (p *stubPublisher) PublishCommissionLogged(_ context.Context, event broker.CommissionLoggedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *stubPublisher) Close() error {
	return nil
}

func (p *stubPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type stubEnqueuer struct {
	payloads []queue.OrderPayoutPayload
	failAt   int
	err      error
}

func (q *stubEnqueuer) EnqueueOrderPayout(_ context.Context, payload queue.OrderPayoutPayload) error {
	if q.err != nil && len(q.payloads) == q.failAt {
		return q.err
	}
	q.payloads = append(q.payloads, payload)
	return nil
}

type ingestFixture struct {
	db        *gorm.DB
	svc       *OrderService
	api       *stubMerchantAPI
	publisher *stubPublisher
	merchant  *models.Merchant
}

func setupIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	api := &stubMerchantAPI{}
	publisher := &stubPublisher{}
	fixture := &ingestFixture{
		db:        db,
		api:       api,
		publisher: publisher,
	}
	fixture.svc = newTestOrderService(db, repository.NewOrderRepository(db), api, publisher, time.Second)
	fixture.merchant = createServiceTestMerchant(t, db, "shop.example.com", "owner@shop.example.com", "0.1")
	return fixture
}

func newTestOrderService(db *gorm.DB, orderRepo repository.OrderRepository, api merchantapi.Client, publisher broker.Publisher, timeout time.Duration) *OrderService {
	userRepo := repository.NewUserRepository(db)
	merchantSvc := NewMerchantService(repository.NewMerchantRepository(db), userRepo)
	affiliateSvc := NewAffiliateService(repository.NewAffiliateRepository(db), userRepo, api)
	return NewOrderService(orderRepo, merchantSvc, affiliateSvc, publisher, timeout)
}

func createServiceTestMerchant(t *testing.T, db *gorm.DB, domain, email, rate string) *models.Merchant {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash api key failed: %v", err)
	}
	user := models.User{Email: email, Name: domain, Type: constants.UserTypeMerchant, PasswordHash: string(hash)}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create merchant user failed: %v", err)
	}
	merchant := models.Merchant{
		UserID:                user.ID,
		Domain:                domain,
		DisplayName:           domain,
		DefaultCommissionRate: decimal.RequireFromString(rate),
	}
	if err := db.Omit("User").Create(&merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	return &merchant
}

func createServiceTestAffiliate(t *testing.T, db *gorm.DB, merchantID uint, email, code, rate string) *models.Affiliate {
	t.Helper()
	user := models.User{Email: email, Name: email, Type: constants.UserTypeAffiliate}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create affiliate user failed: %v", err)
	}
	affiliate := models.Affiliate{
		MerchantID:     merchantID,
		UserID:         user.ID,
		CommissionRate: decimal.RequireFromString(rate),
		DiscountCode:   code,
	}
	if err := db.Omit("Merchant", "User").Create(&affiliate).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	return &affiliate
}

func createServiceTestOrder(t *testing.T, db *gorm.DB, affiliate *models.Affiliate, externalID, commission string, createdAt time.Time) *models.Order {
	t.Helper()
	order := models.Order{
		ExternalOrderID: externalID,
		Subtotal:        models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		CommissionRate:  affiliate.CommissionRate,
		CommissionOwed:  models.NewMoneyFromDecimal(decimal.RequireFromString(commission)),
		MerchantID:      affiliate.MerchantID,
		AffiliateID:     affiliate.ID,
		PayoutStatus:    constants.PayoutStatusUnpaid,
		CreatedAt:       createdAt,
	}
	if err := db.Omit("Merchant", "Affiliate").Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return &order
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows failed: %v", err)
	}
	return count
}

func sampleOrderEvent(orderID string) OrderEvent {
	return OrderEvent{
		OrderID:        orderID,
		Subtotal:       decimal.RequireFromString("123.45"),
		MerchantDomain: "shop.example.com",
		DiscountCode:   "NOPE0000",
		CustomerEmail:  "buyer@example.com",
		CustomerName:   "Buyer",
	}
}
