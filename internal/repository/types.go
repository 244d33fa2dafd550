package repository

import (
	"strings"

	"github.com/shopspring/decimal"
)

// OrderStatsRow 订单统计原始结果
type OrderStatsRow struct {
	Count          int64
	CommissionOwed decimal.Decimal
	Revenue        decimal.Decimal
}

// normalizeEmail 邮箱统一小写去空格
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeDomain 域名统一小写去空格
func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
