package merchant

import (
	"fmt"
	"strings"
	"time"

	"github.com/affiliate-ledger/internal/http/handlers/shared"
	"github.com/affiliate-ledger/internal/http/response"
	"github.com/affiliate-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// OrderStatsQuery 订单统计查询参数
type OrderStatsQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

var statsErrorRules = []shared.MappedHandlerError{
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Message: "Invalid stats window"},
	{Target: service.ErrTransientStorage, Code: response.CodeServiceUnavailable, Message: "Stats temporarily unavailable"},
	{Target: service.ErrIngestionTimeout, Code: response.CodeServiceUnavailable, Message: "Stats temporarily unavailable"},
}

// GetOrderStats 当前商户在 [from, to] 内的订单统计
func (h *Handler) GetOrderStats(c *gin.Context) {
	merchantID, ok := shared.GetMerchantID(c)
	if !ok {
		return
	}
	var query OrderStatsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "from and to are required", err)
		return
	}
	from, err := parseWindowBound(query.From, false)
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "Invalid from", err)
		return
	}
	to, err := parseWindowBound(query.To, true)
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "Invalid to", err)
		return
	}

	stats, err := h.StatsService.MerchantOrderStats(c.Request.Context(), merchantID, from, to)
	if err != nil {
		shared.RespondWithMappedError(c, err, statsErrorRules, response.CodeInternal, "Stats query failed")
		return
	}
	response.Success(c, stats)
}

// parseWindowBound 支持 RFC3339 与日期格式；日期作为上界时取当日最后一刻
func parseWindowBound(raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is neither RFC3339 nor %s", service.ErrInvalidInput, raw, dateLayout)
	}
	if upper {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}
