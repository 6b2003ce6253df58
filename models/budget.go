package models

import (
	"time"
)

// MonthLayout 预算周期的月份格式，如 2024-05
const MonthLayout = "2006-01"

// Budget 月度预算
type Budget struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	UserID          uint      `json:"userId" gorm:"uniqueIndex:idx_budget_user_month;not null"`
	TotalAmount     float64   `json:"totalAmount" gorm:"type:decimal(15,2);not null"`
	RemainingAmount float64   `json:"remainingAmount" gorm:"type:decimal(15,2);not null"`
	Month           string    `json:"month" gorm:"uniqueIndex:idx_budget_user_month;size:7;not null"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TableName 设置表名
func (Budget) TableName() string {
	return "budgets"
}

// MonthRange 返回月份 [start, end) 的时间范围（UTC）
func MonthRange(month string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(MonthLayout, month, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}

// CurrentMonth 返回 t 所在月份（UTC）
func CurrentMonth(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}
