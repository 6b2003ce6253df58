package models

import (
	"time"
)

// Notification 站内通知
type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"index;not null"`
	Message   string    `json:"message" gorm:"size:255;not null"`
	Read      bool      `json:"read" gorm:"column:is_read;not null;default:false"` // read 是 MySQL 保留字
	Date      time.Time `json:"date" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 设置表名
func (Notification) TableName() string {
	return "notifications"
}
