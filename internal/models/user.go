package models

import "time"

// User 用户表（商户与推广者共用身份）
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`                        // 主键
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`           // 邮箱（全局唯一）
	Name         string    `gorm:"type:varchar(255);default:''" json:"name"`    // 名称
	Type         string    `gorm:"type:varchar(20);not null;index" json:"type"` // 用户类型 merchant/affiliate
	PasswordHash string    `gorm:"type:varchar(255);default:''" json:"-"`       // 商户 API Key 哈希
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                     // 创建时间
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`                     // 更新时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
