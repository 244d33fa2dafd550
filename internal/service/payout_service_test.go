package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/models"
	"github.com/affiliate-ledger/internal/queue"
	"github.com/affiliate-ledger/internal/repository"

	"gorm.io/gorm"
)

func newTestPayoutService(db *gorm.DB, enqueuer PayoutEnqueuer, api *stubMerchantAPI) *PayoutService {
	return NewPayoutService(repository.NewOrderRepository(db), repository.NewAffiliateRepository(db), enqueuer, api)
}

func TestDispatchPayoutsEnqueuesUnpaidOrders(t *testing.T) {
	db := setupServiceTestDB(t)
	merchant := createServiceTestMerchant(t, db, "pay.example.com", "owner@pay.example.com", "0.1")
	affiliate := createServiceTestAffiliate(t, db, merchant.ID, "earner@example.com", "EARN0001", "0.1")
	other := createServiceTestAffiliate(t, db, merchant.ID, "other@example.com", "EARN0002", "0.1")
	now := time.Now().UTC()
	first := createServiceTestOrder(t, db, affiliate, "pay-1", "10.00", now)
	second := createServiceTestOrder(t, db, affiliate, "pay-2", "20.00", now)
	paid := createServiceTestOrder(t, db, affiliate, "pay-3", "30.00", now)
	createServiceTestOrder(t, db, other, "pay-other", "40.00", now)
	if err := db.Model(&models.Order{}).Where("id = ?", paid.ID).Update("payout_status", constants.PayoutStatusPaid).Error; err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	enqueuer := &stubEnqueuer{}
	svc := newTestPayoutService(db, enqueuer, &stubMerchantAPI{})
	dispatched, err := svc.DispatchPayouts(context.Background(), affiliate.ID)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if dispatched != 2 || len(enqueuer.payloads) != 2 {
		t.Fatalf("expected 2 dispatched, got %d (%d payloads)", dispatched, len(enqueuer.payloads))
	}
	if enqueuer.payloads[0].OrderID != first.ID || enqueuer.payloads[1].OrderID != second.ID {
		t.Fatalf("unexpected payload order: %+v", enqueuer.payloads)
	}
	if enqueuer.payloads[0].ExternalOrderID != "pay-1" {
		t.Fatalf("unexpected external order id: %s", enqueuer.payloads[0].ExternalOrderID)
	}

	// 投递不改状态，也不去重
	again, err := svc.DispatchPayouts(context.Background(), affiliate.ID)
	if err != nil || again != 2 {
		t.Fatalf("second dispatch should enqueue again, got %d err=%v", again, err)
	}

	none, err := svc.DispatchPayouts(context.Background(), 9999)
	if err != nil || none != 0 {
		t.Fatalf("unknown affiliate should dispatch nothing, got %d err=%v", none, err)
	}
}

func TestDispatchPayoutsStopsOnEnqueueError(t *testing.T) {
	db := setupServiceTestDB(t)
	merchant := createServiceTestMerchant(t, db, "partial.example.com", "owner@partial.example.com", "0.1")
	affiliate := createServiceTestAffiliate(t, db, merchant.ID, "partial@example.com", "PART0001", "0.1")
	now := time.Now().UTC()
	for _, id := range []string{"p-1", "p-2", "p-3"} {
		createServiceTestOrder(t, db, affiliate, id, "1.00", now)
	}

	enqueueErr := errors.New("redis unavailable")
	svc := newTestPayoutService(db, &stubEnqueuer{failAt: 1, err: enqueueErr}, &stubMerchantAPI{})
	dispatched, err := svc.DispatchPayouts(context.Background(), affiliate.ID)
	if !errors.Is(err, enqueueErr) {
		t.Fatalf("expected enqueue error, got %v", err)
	}
	if dispatched != 1 {
		t.Fatalf("expected one dispatched before failure, got %d", dispatched)
	}
}

func TestDispatchPayoutsQueueDisabled(t *testing.T) {
	db := setupServiceTestDB(t)
	merchant := createServiceTestMerchant(t, db, "off.example.com", "owner@off.example.com", "0.1")
	affiliate := createServiceTestAffiliate(t, db, merchant.ID, "off@example.com", "OFF00001", "0.1")
	createServiceTestOrder(t, db, affiliate, "off-1", "1.00", time.Now().UTC())

	svc := newTestPayoutService(db, &stubEnqueuer{failAt: 0, err: queue.ErrQueueDisabled}, &stubMerchantAPI{})
	_, err := svc.DispatchPayouts(context.Background(), affiliate.ID)
	if !errors.Is(err, ErrQueueUnavailable) {
		t.Fatalf("expected queue unavailable, got %v", err)
	}
}

func TestDispatchMerchantPayoutsChecksOwnership(t *testing.T) {
	db := setupServiceTestDB(t)
	owner := createServiceTestMerchant(t, db, "own.example.com", "owner@own.example.com", "0.1")
	stranger := createServiceTestMerchant(t, db, "stranger.example.com", "owner@stranger.example.com", "0.1")
	affiliate := createServiceTestAffiliate(t, db, owner.ID, "mine@example.com", "MINE0001", "0.1")
	createServiceTestOrder(t, db, affiliate, "own-1", "1.00", time.Now().UTC())

	enqueuer := &stubEnqueuer{}
	svc := newTestPayoutService(db, enqueuer, &stubMerchantAPI{})
	if _, err := svc.DispatchMerchantPayouts(context.Background(), stranger.ID, affiliate.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for foreign merchant, got %v", err)
	}
	dispatched, err := svc.DispatchMerchantPayouts(context.Background(), owner.ID, affiliate.ID)
	if err != nil || dispatched != 1 {
		t.Fatalf("owner dispatch failed: %d err=%v", dispatched, err)
	}
}

func TestCompleteOrderPayoutMarksPaidOnce(t *testing.T) {
	db := setupServiceTestDB(t)
	merchant := createServiceTestMerchant(t, db, "done.example.com", "owner@done.example.com", "0.1")
	affiliate := createServiceTestAffiliate(t, db, merchant.ID, "done@example.com", "DONE0001", "0.1")
	order := createServiceTestOrder(t, db, affiliate, "done-1", "12.35", time.Now().UTC())

	api := &stubMerchantAPI{}
	svc := newTestPayoutService(db, &stubEnqueuer{}, api)
	if err := svc.CompleteOrderPayout(context.Background(), order.ID); err != nil {
		t.Fatalf("complete payout failed: %v", err)
	}
	if err := svc.CompleteOrderPayout(context.Background(), order.ID); err != nil {
		t.Fatalf("repeat payout should be skipped, got %v", err)
	}
	if len(api.payouts) != 1 {
		t.Fatalf("expected exactly one payout, got %d", len(api.payouts))
	}
	sent := api.payouts[0]
	if sent.Email != "done@example.com" || sent.ExternalOrderID != "done-1" || sent.Amount.StringFixed(2) != "12.35" {
		t.Fatalf("unexpected payout request: %+v", sent)
	}

	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.PayoutStatus != constants.PayoutStatusPaid || stored.PaidAt == nil {
		t.Fatalf("order should be paid, got %s paid_at=%v", stored.PayoutStatus, stored.PaidAt)
	}
}

func TestCompleteOrderPayoutSendFailureKeepsUnpaid(t *testing.T) {
	db := setupServiceTestDB(t)
	merchant := createServiceTestMerchant(t, db, "fail.example.com", "owner@fail.example.com", "0.1")
	affiliate := createServiceTestAffiliate(t, db, merchant.ID, "fail@example.com", "FAIL0001", "0.1")
	order := createServiceTestOrder(t, db, affiliate, "fail-1", "5.00", time.Now().UTC())

	sendErr := errors.New("gateway timeout")
	svc := newTestPayoutService(db, &stubEnqueuer{}, &stubMerchantAPI{sendErr: sendErr})
	if err := svc.CompleteOrderPayout(context.Background(), order.ID); !errors.Is(err, sendErr) {
		t.Fatalf("expected send error, got %v", err)
	}
	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.PayoutStatus != constants.PayoutStatusUnpaid {
		t.Fatalf("failed payout must stay unpaid, got %s", stored.PayoutStatus)
	}

	if err := svc.CompleteOrderPayout(context.Background(), 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing order, got %v", err)
	}
}

func TestCompleteOrderPayoutWithoutSenderIsRetryable(t *testing.T) {
	db := setupServiceTestDB(t)
	merchant := createServiceTestMerchant(t, db, "nosender.example.com", "owner@nosender.example.com", "0.1")
	affiliate := createServiceTestAffiliate(t, db, merchant.ID, "nosender@example.com", "NOSEND01", "0.1")
	order := createServiceTestOrder(t, db, affiliate, "nosender-1", "5.00", time.Now().UTC())

	svc := NewPayoutService(repository.NewOrderRepository(db), repository.NewAffiliateRepository(db), &stubEnqueuer{}, nil)
	err := svc.CompleteOrderPayout(context.Background(), order.ID)
	if !errors.Is(err, ErrPayoutSenderMissing) {
		t.Fatalf("expected ErrPayoutSenderMissing, got %v", err)
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) {
		t.Fatalf("missing sender must not be classified as a permanent task error: %v", err)
	}
	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.PayoutStatus != constants.PayoutStatusUnpaid {
		t.Fatalf("order should stay unpaid, got %s", stored.PayoutStatus)
	}
}
