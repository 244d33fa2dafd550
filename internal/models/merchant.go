package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Merchant 商户表
type Merchant struct {
	ID                    uint            `gorm:"primarykey" json:"id"`                                                   // 主键
	UserID                uint            `gorm:"not null;uniqueIndex" json:"user_id"`                                    // 商户账号
	Domain                string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"domain"`                   // 店铺域名（查询键）
	DisplayName           string          `gorm:"type:varchar(255);default:''" json:"display_name"`                       // 展示名称
	DefaultCommissionRate decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0.1" json:"default_commission_rate"` // 新推广者默认佣金比例
	CreatedAt             time.Time       `gorm:"index" json:"created_at"`                                                // 创建时间
	UpdatedAt             time.Time       `gorm:"index" json:"updated_at"`                                                // 更新时间

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"` // 商户账号
}

// TableName 指定表名
func (Merchant) TableName() string {
	return "merchants"
}
