package merchant

import "github.com/affiliate-ledger/internal/provider"

// Handler 商户接口处理器入口
// 说明：路由需挂载商户鉴权中间件，上下文中带有 merchant_id。
type Handler struct {
	*provider.Container
}

// New 创建商户处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
