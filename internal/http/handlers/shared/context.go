package shared

import (
	"github.com/affiliate-ledger/internal/http/response"

	"github.com/gin-gonic/gin"
)

// MerchantIDKey 鉴权中间件写入的商户 ID 上下文键
const MerchantIDKey = "merchant_id"

// GetContextUint 从上下文读取 uint 值并统一处理错误响应。
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, key+" invalid", nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, key+" type invalid", nil)
		return 0, false
	}
}

// GetMerchantID 读取当前商户 ID
func GetMerchantID(c *gin.Context) (uint, bool) {
	return GetContextUint(c, MerchantIDKey)
}
