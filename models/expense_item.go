package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ExpenseItem 票据识别出的单条消费
type ExpenseItem struct {
	Amount   float64 `json:"amount" binding:"gte=0"`
	Currency string  `json:"currency" binding:"required,oneof=vnd usd eur"`
	Category string  `json:"category" binding:"required,oneof=food transportation utility rent health"`
}

// Valid 校验枚举字段
func (i ExpenseItem) Valid() bool {
	return i.Amount >= 0 && IsValidCurrency(i.Currency) && IsValidCategory(i.Category)
}

// ExpenseItems 以 JSON 列存储的消费明细
type ExpenseItems []ExpenseItem

// Value 实现 driver.Valuer，nil 存为 NULL
func (items ExpenseItems) Value() (driver.Value, error) {
	if items == nil {
		return nil, nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (items *ExpenseItems) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*items = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported extracted_items type %T", src)
	}
	if len(data) == 0 {
		*items = nil
		return nil
	}
	return json.Unmarshal(data, items)
}
