package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/affiliate-ledger/internal/config"
	"github.com/affiliate-ledger/internal/models"
	"github.com/affiliate-ledger/internal/provider"
	"github.com/affiliate-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type routerFixture struct {
	engine    *gin.Engine
	container *provider.Container
	merchant  *models.Merchant
}

func setupRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{
		Server:      config.ServerConfig{Mode: "debug"},
		Ingestion:   config.IngestionConfig{TimeoutSeconds: 5},
		MerchantAPI: config.MerchantAPIConfig{Driver: "local"},
		Security: config.SecurityConfig{
			WebhookRateLimit: config.RateLimitConfig{WindowSeconds: 60, MaxRequests: 100},
		},
	}
	container := provider.NewContainerWithDB(cfg, db)
	merchant, err := container.MerchantService.Register(context.Background(), service.MerchantRegisterInput{
		Domain:                "shop.example.com",
		Name:                  "Shop",
		Email:                 "owner@shop.example.com",
		APIKey:                "merchant-key",
		DefaultCommissionRate: decimal.RequireFromString("0.1"),
	})
	if err != nil {
		t.Fatalf("register merchant failed: %v", err)
	}
	return &routerFixture{
		engine:    SetupRouter(cfg, container),
		container: container,
		merchant:  merchant,
	}
}

func (f *routerFixture) postWebhook(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *routerFixture) merchantRequest(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.SetBasicAuth("owner@shop.example.com", "merchant-key")
	f.engine.ServeHTTP(w, req)
	return w
}

func webhookBody(orderID, domain, email string) string {
	return fmt.Sprintf(`{
		"order_id": %q,
		"subtotal_price": "150.00",
		"merchant_domain": %q,
		"discount_code": "NOCODE00",
		"customer_email": %q,
		"customer_name": "Buyer"
	}`, orderID, domain, email)
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body failed: %v (%s)", err, w.Body.String())
	}
	return body.Message
}

func TestOrderWebhookCreatedAndDuplicate(t *testing.T) {
	f := setupRouterFixture(t)

	w := f.postWebhook(t, webhookBody("wh-1", "shop.example.com", "buyer@example.com"))
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d body=%s", w.Code, w.Body.String())
	}
	if msg := decodeMessage(t, w); msg != "Order processed" {
		t.Fatalf("unexpected message: %s", msg)
	}

	w = f.postWebhook(t, webhookBody("wh-1", "shop.example.com", "buyer@example.com"))
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate should be acknowledged, got %d", w.Code)
	}

	var count int64
	if err := f.container.DB.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one order, got %d", count)
	}
}

func TestOrderWebhookRejections(t *testing.T) {
	f := setupRouterFixture(t)

	w := f.postWebhook(t, webhookBody("wh-2", "missing.example.com", "buyer@example.com"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown merchant want 404 got %d", w.Code)
	}
	if msg := decodeMessage(t, w); msg == "" {
		t.Fatalf("unknown merchant should carry a message")
	}

	w = f.postWebhook(t, `{"order_id":"wh-3","merchant_domain":"shop.example.com"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing fields want 400 got %d", w.Code)
	}

	w = f.postWebhook(t, `not-json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body want 400 got %d", w.Code)
	}

	// 邮箱属于商户本身且推广码无匹配
	w = f.postWebhook(t, webhookBody("wh-4", "shop.example.com", "owner@shop.example.com"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unresolved affiliate want 422 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestMerchantOrderStatsEndpoint(t *testing.T) {
	f := setupRouterFixture(t)
	for i := 0; i < 2; i++ {
		w := f.postWebhook(t, webhookBody(fmt.Sprintf("st-%d", i), "shop.example.com", "buyer@example.com"))
		if w.Code != http.StatusOK {
			t.Fatalf("seed webhook failed: %d %s", w.Code, w.Body.String())
		}
	}
	today := time.Now().UTC().Format("2006-01-02")

	w := f.merchantRequest(t, http.MethodGet, "/api/v1/merchant/order-stats?from="+today+"&to="+today)
	if w.Code != http.StatusOK {
		t.Fatalf("stats want 200 got %d body=%s", w.Code, w.Body.String())
	}
	var stats struct {
		Count          int64  `json:"count"`
		CommissionOwed string `json:"commission_owed"`
		Revenue        string `json:"revenue"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal stats failed: %v", err)
	}
	if stats.Count != 2 || stats.Revenue != "300.00" || stats.CommissionOwed != "30.00" {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	w = f.merchantRequest(t, http.MethodGet, "/api/v1/merchant/order-stats?from=yesterday&to="+today)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid from want 400 got %d", w.Code)
	}

	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/merchant/order-stats?from="+today+"&to="+today, nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous stats want 401 got %d", w.Code)
	}
}

func TestMerchantAffiliatesAndPayoutEndpoints(t *testing.T) {
	f := setupRouterFixture(t)
	if w := f.postWebhook(t, webhookBody("po-1", "shop.example.com", "buyer@example.com")); w.Code != http.StatusOK {
		t.Fatalf("seed webhook failed: %d %s", w.Code, w.Body.String())
	}

	w := f.merchantRequest(t, http.MethodGet, "/api/v1/merchant/affiliates")
	if w.Code != http.StatusOK {
		t.Fatalf("list affiliates want 200 got %d", w.Code)
	}
	var list struct {
		Affiliates []struct {
			ID           uint   `json:"id"`
			Email        string `json:"email"`
			DiscountCode string `json:"discount_code"`
		} `json:"affiliates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal affiliates failed: %v", err)
	}
	if len(list.Affiliates) != 1 || list.Affiliates[0].Email != "buyer@example.com" || len(list.Affiliates[0].DiscountCode) != 8 {
		t.Fatalf("unexpected affiliates: %+v", list.Affiliates)
	}

	// 队列未启用
	path := fmt.Sprintf("/api/v1/merchant/affiliates/%d/payouts", list.Affiliates[0].ID)
	w = f.merchantRequest(t, http.MethodPost, path)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled queue want 503 got %d body=%s", w.Code, w.Body.String())
	}

	w = f.merchantRequest(t, http.MethodPost, "/api/v1/merchant/affiliates/9999/payouts")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown affiliate want 404 got %d", w.Code)
	}

	w = f.merchantRequest(t, http.MethodPost, "/api/v1/merchant/affiliates/abc/payouts")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid affiliate id want 400 got %d", w.Code)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	f := setupRouterFixture(t)

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz want 200 got %d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("metrics output should include http_requests_total")
	}
}
