package response

import (
	"github.com/gin-gonic/gin"
)

// MessageBody 统一消息响应结构
type MessageBody struct {
	Message   string `json:"message"`              // 提示消息
	RequestID string `json:"request_id,omitempty"` // 请求 ID（仅错误响应）
}

// Success 成功响应，直接输出数据
func Success(c *gin.Context, data interface{}) {
	c.JSON(CodeOK, data)
}

// Message 成功响应（仅消息）
func Message(c *gin.Context, msg string) {
	c.JSON(CodeOK, MessageBody{Message: msg})
}

// Error 错误响应，HTTP 状态码即业务状态码
func Error(c *gin.Context, statusCode int, msg string) {
	c.JSON(statusCode, MessageBody{
		Message:   msg,
		RequestID: requestID(c),
	})
}

// NotFound 404响应
func NotFound(c *gin.Context, msg string) {
	Error(c, CodeNotFound, msg)
}

// Unauthorized 401响应
func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
}

// BadRequest 400响应
func BadRequest(c *gin.Context, msg string) {
	Error(c, CodeBadRequest, msg)
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if value, ok := c.Get("request_id"); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
