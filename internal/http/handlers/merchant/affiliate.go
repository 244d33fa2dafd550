package merchant

import (
	"strconv"

	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/http/handlers/shared"
	"github.com/affiliate-ledger/internal/http/response"
	"github.com/affiliate-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// AffiliateItem 推广者列表项
type AffiliateItem struct {
	ID             uint   `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	DiscountCode   string `json:"discount_code"`
	CommissionRate string `json:"commission_rate"`
}

var payoutErrorRules = []shared.MappedHandlerError{
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Message: "Affiliate not found"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Message: "Invalid affiliate"},
	{Target: service.ErrQueueUnavailable, Code: response.CodeServiceUnavailable, Message: "Payout queue unavailable"},
	{Target: service.ErrTransientStorage, Code: response.CodeServiceUnavailable, Message: "Payout dispatch unavailable"},
}

// ListAffiliates 列出当前商户的推广者
func (h *Handler) ListAffiliates(c *gin.Context) {
	merchantID, ok := shared.GetMerchantID(c)
	if !ok {
		return
	}
	rows, err := h.AffiliateService.ListByMerchant(c.Request.Context(), merchantID)
	if err != nil {
		shared.RespondError(c, response.CodeServiceUnavailable, "Affiliates temporarily unavailable", err)
		return
	}
	items := make([]AffiliateItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, AffiliateItem{
			ID:             row.ID,
			Email:          row.User.Email,
			Name:           row.User.Name,
			DiscountCode:   row.DiscountCode,
			CommissionRate: row.CommissionRate.StringFixed(constants.CommissionRateScale),
		})
	}
	response.Success(c, gin.H{"affiliates": items})
}

// DispatchPayouts 为当前商户名下推广者投递未结算订单的打款任务
func (h *Handler) DispatchPayouts(c *gin.Context) {
	merchantID, ok := shared.GetMerchantID(c)
	if !ok {
		return
	}
	affiliateID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || affiliateID == 0 {
		shared.RespondError(c, response.CodeBadRequest, "Invalid affiliate id", err)
		return
	}

	dispatched, err := h.PayoutService.DispatchMerchantPayouts(c.Request.Context(), merchantID, uint(affiliateID))
	if err != nil {
		shared.RequestLog(c).Warnw("merchant_payout_dispatch_partial",
			"merchant_id", merchantID,
			"affiliate_id", affiliateID,
			"dispatched", dispatched,
		)
		shared.RespondWithMappedError(c, err, payoutErrorRules, response.CodeServiceUnavailable, "Payout dispatch failed")
		return
	}
	response.Success(c, gin.H{"dispatched": dispatched})
}
