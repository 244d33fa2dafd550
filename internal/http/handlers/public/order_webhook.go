package public

import (
	"github.com/affiliate-ledger/internal/http/handlers/shared"
	"github.com/affiliate-ledger/internal/http/response"
	"github.com/affiliate-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderWebhookRequest 订单 webhook 请求体，全部字段必填
type OrderWebhookRequest struct {
	OrderID        string           `json:"order_id" binding:"required"`
	SubtotalPrice  *decimal.Decimal `json:"subtotal_price" binding:"required"`
	MerchantDomain string           `json:"merchant_domain" binding:"required"`
	DiscountCode   string           `json:"discount_code" binding:"required"`
	CustomerEmail  string           `json:"customer_email" binding:"required,email"`
	CustomerName   string           `json:"customer_name" binding:"required"`
}

var orderWebhookErrorRules = []shared.MappedHandlerError{
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Message: "Invalid order payload"},
	{Target: service.ErrUnknownMerchant, Code: response.CodeNotFound, Message: "Merchant not found"},
	{Target: service.ErrAffiliateUnresolved, Code: response.CodeUnprocessable, Message: "Affiliate could not be resolved"},
	{Target: service.ErrIngestionTimeout, Code: response.CodeServiceUnavailable, Message: "Order ingestion timed out, retry later"},
	{Target: service.ErrTransientStorage, Code: response.CodeServiceUnavailable, Message: "Order storage unavailable, retry later"},
}

// ReceiveOrderWebhook 接收订单 webhook；新建与重复投递均确认成功
func (h *Handler) ReceiveOrderWebhook(c *gin.Context) {
	log := shared.RequestLog(c)
	var req OrderWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "Invalid order payload", err)
		return
	}

	outcome := h.OrderService.ProcessEvent(c.Request.Context(), service.OrderEvent{
		OrderID:        req.OrderID,
		Subtotal:       *req.SubtotalPrice,
		MerchantDomain: req.MerchantDomain,
		DiscountCode:   req.DiscountCode,
		CustomerEmail:  req.CustomerEmail,
		CustomerName:   req.CustomerName,
	})
	if outcome.Succeeded() {
		log.Infow("order_webhook_accepted", "order_id", req.OrderID, "status", outcome.Status)
		response.Message(c, "Order processed")
		return
	}
	shared.RespondWithMappedError(c, outcome.Err, orderWebhookErrorRules, response.CodeInternal, "Order processing failed")
}
