package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Affiliate 推广者表，一个推广者只归属一个商户且只有一个推广码
type Affiliate struct {
	ID             uint            `gorm:"primarykey" json:"id"`                                         // 主键
	MerchantID     uint            `gorm:"not null;index" json:"merchant_id"`                            // 所属商户
	UserID         uint            `gorm:"not null;uniqueIndex" json:"user_id"`                          // 推广者账号
	CommissionRate decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"commission_rate"` // 佣金比例 [0,1]
	DiscountCode   string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"discount_code"`   // 推广码
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time       `gorm:"index" json:"updated_at"`                                      // 更新时间

	Merchant Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"` // 所属商户
	User     User     `gorm:"foreignKey:UserID" json:"user,omitempty"`         // 推广者账号
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}
