package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 订单表（由 webhook 事件落库，佣金在接入时一次性计算）
type Order struct {
	ID              uint            `gorm:"primarykey" json:"id"`                                                             // 主键
	ExternalOrderID string          `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_order_id"`                  // 外部订单号（幂等键）
	Subtotal        Money           `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`                            // 订单小计
	DiscountCode    string          `gorm:"type:varchar(64);index" json:"discount_code"`                                      // 下单使用的推广码
	CustomerEmail   string          `gorm:"type:varchar(255);index" json:"customer_email"`                                    // 顾客邮箱
	CommissionRate  decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"commission_rate"`                     // 接入时的佣金比例快照
	CommissionOwed  Money           `gorm:"type:decimal(20,2);not null;default:0" json:"commission_owed"`                     // 应付佣金
	MerchantID      uint            `gorm:"not null;index" json:"merchant_id"`                                                // 商户
	AffiliateID     uint            `gorm:"not null;index:idx_orders_affiliate_payout" json:"affiliate_id"`                   // 推广者
	PayoutStatus    string          `gorm:"type:varchar(20);not null;index:idx_orders_affiliate_payout" json:"payout_status"` // 佣金结算状态
	PaidAt          *time.Time      `gorm:"index" json:"paid_at,omitempty"`                                                   // 佣金打款时间
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`                                                          // 创建时间
	UpdatedAt       time.Time       `gorm:"index" json:"updated_at"`                                                          // 更新时间

	Merchant  *Merchant  `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`   // 商户
	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广者
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
