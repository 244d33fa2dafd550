package shared

import (
	"errors"

	"github.com/affiliate-ledger/internal/http/response"
	"github.com/affiliate-ledger/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.NewAppError(code, msg, err)
	if err != nil {
		log := RequestLog(c).With("status", appErr.Status, "retryable", appErr.Retryable())
		if appErr.ServerSide() {
			log.Errorw("handler_error", "message", appErr.Message, "error", err)
		} else {
			log.Warnw("handler_error", "message", appErr.Message, "error", err)
		}
	}
	response.Error(c, appErr.Status, appErr.Message)
}

// MappedHandlerError 定义业务错误到接口错误响应的映射关系。
type MappedHandlerError struct {
	Target  error
	Code    int
	Message string
}

// RespondWithMappedError 按规则顺序匹配错误，未命中时使用兜底响应。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Message, err)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackMsg, err)
}
