package merchantapi

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/affiliate-ledger/internal/constants"
	"github.com/affiliate-ledger/internal/logger"
)

const discountCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// LocalClient 本地实现：随机生成推广码，打款仅记录日志
type LocalClient struct{}

// NewLocalClient 创建本地客户端
func NewLocalClient() *LocalClient {
	return &LocalClient{}
}

// CreateDiscountCode 生成随机推广码，唯一性由数据库唯一索引保证
func (c *LocalClient) CreateDiscountCode(ctx context.Context, merchant Merchant) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return generateDiscountCode(constants.DiscountCodeLength)
}

// SendPayout 记录打款日志
func (c *LocalClient) SendPayout(ctx context.Context, req PayoutRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Infow("merchant_payout_sent",
		"driver", constants.MerchantAPIDriverLocal,
		"order_id", req.OrderID,
		"external_order_id", req.ExternalOrderID,
		"email", req.Email,
		"amount", req.Amount.StringFixed(2),
	)
	return nil
}

func generateDiscountCode(length int) (string, error) {
	var builder strings.Builder
	builder.Grow(length)
	max := big.NewInt(int64(len(discountCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(discountCodeAlphabet[n.Int64()])
	}
	return builder.String(), nil
}
