package merchantapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/affiliate-ledger/internal/constants"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid   = errors.New("merchant api config invalid")
	ErrRequestFailed   = errors.New("merchant api request failed")
	ErrResponseInvalid = errors.New("merchant api response invalid")
)

const defaultTimeout = 3 * time.Second

// Merchant 签发推广码所需的商户信息
type Merchant struct {
	ID     uint
	Domain string
}

// PayoutRequest 单笔订单佣金打款请求
type PayoutRequest struct {
	OrderID         uint
	ExternalOrderID string
	Email           string
	Amount          decimal.Decimal
}

// Client 商户平台协作方：签发推广码、发放佣金
type Client interface {
	CreateDiscountCode(ctx context.Context, merchant Merchant) (string, error)
	SendPayout(ctx context.Context, req PayoutRequest) error
}

// Config 商户平台接口配置
type Config struct {
	Driver  string
	BaseURL string
	Token   string
	Timeout time.Duration
}

// New 按驱动创建客户端，未配置时使用本地实现
func New(cfg Config) (Client, error) {
	cfg.normalize()
	switch cfg.Driver {
	case constants.MerchantAPIDriverLocal:
		return NewLocalClient(), nil
	case constants.MerchantAPIDriverHTTP:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
		}
		return NewHTTPClient(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", ErrConfigInvalid, cfg.Driver)
	}
}

func (c *Config) normalize() {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = constants.MerchantAPIDriverLocal
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.Token = strings.TrimSpace(c.Token)
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}
