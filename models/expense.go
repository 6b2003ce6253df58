package models

import (
	"time"
)

// Expense 消费记录模型
type Expense struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	UserID         uint         `json:"userId" gorm:"index;not null"`
	Amount         float64      `json:"amount" gorm:"type:decimal(15,2);not null"`
	Currency       string       `json:"currency" gorm:"size:3;not null"`
	Category       string       `json:"category" gorm:"size:20;not null"`
	Description    *string      `json:"description" gorm:"size:255"`
	ReceiptURL     *string      `json:"receiptUrl" gorm:"size:512"`
	Date           time.Time    `json:"date" gorm:"index;not null"`
	ExtractedItems ExpenseItems `json:"extractedItems" gorm:"type:json"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}

// 币种
const (
	CurrencyVND = "vnd"
	CurrencyUSD = "usd"
	CurrencyEUR = "eur"
)

// 消费类别
const (
	CategoryFood           = "food"
	CategoryTransportation = "transportation"
	CategoryUtility        = "utility"
	CategoryRent           = "rent"
	CategoryHealth         = "health"
)

// GetCurrencies 获取所有币种
func GetCurrencies() []string {
	return []string{CurrencyVND, CurrencyUSD, CurrencyEUR}
}

// GetCategories 获取所有消费类别
func GetCategories() []string {
	return []string{
		CategoryFood,
		CategoryTransportation,
		CategoryUtility,
		CategoryRent,
		CategoryHealth,
	}
}

// IsValidCurrency 判断币种是否合法
func IsValidCurrency(s string) bool {
	for _, c := range GetCurrencies() {
		if c == s {
			return true
		}
	}
	return false
}

// IsValidCategory 判断类别是否合法
func IsValidCategory(s string) bool {
	for _, c := range GetCategories() {
		if c == s {
			return true
		}
	}
	return false
}
