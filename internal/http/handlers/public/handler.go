package public

import "github.com/affiliate-ledger/internal/provider"

// Handler 公开接口处理器入口
// 说明：该处理器仅用于第三方 webhook 回调，不做商户鉴权。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
