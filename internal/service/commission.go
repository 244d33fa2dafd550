package service

import (
	"fmt"

	"github.com/affiliate-ledger/internal/constants"

	"github.com/shopspring/decimal"
)

var maxCommissionRate = decimal.NewFromInt(1)

// CalculateCommission 计算佣金 = 小计 × 比例，四舍五入到分
func CalculateCommission(subtotal, rate decimal.Decimal) (decimal.Decimal, error) {
	if subtotal.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: subtotal must not be negative", ErrInvalidInput)
	}
	if err := validateCommissionRate(rate); err != nil {
		return decimal.Zero, err
	}
	return subtotal.Mul(rate).Round(constants.MoneyScale), nil
}

func validateCommissionRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(maxCommissionRate) {
		return fmt.Errorf("%w: commission rate %s out of range [0,1]", ErrInvalidInput, rate.String())
	}
	return nil
}
