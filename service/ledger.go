package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultWarningRatio 剩余预算低于总额的该比例时发出提醒
const DefaultWarningRatio = 0.2

// BudgetChange 一次扣减后的预算状态
type BudgetChange struct {
	Remaining float64
	Warn      bool
}

// ApplyExpense 从剩余预算中扣除 amount，并判断是否低于提醒阈值
// 使用十进制运算，避免多次扣减后的浮点误差
func ApplyExpense(remaining, total, amount, ratio float64) BudgetChange {
	r := decimal.NewFromFloat(remaining).Sub(decimal.NewFromFloat(amount))
	threshold := decimal.NewFromFloat(total).Mul(decimal.NewFromFloat(ratio))
	return BudgetChange{
		Remaining: r.InexactFloat64(),
		Warn:      r.LessThan(threshold),
	}
}

// ResizeBudget 调整预算总额时，剩余额度同步平移差值
func ResizeBudget(oldTotal, oldRemaining, newTotal float64) float64 {
	delta := decimal.NewFromFloat(newTotal).Sub(decimal.NewFromFloat(oldTotal))
	return decimal.NewFromFloat(oldRemaining).Add(delta).InexactFloat64()
}

// WarningMessage 低预算提醒文案
func WarningMessage(ratio float64) string {
	pct := decimal.NewFromFloat(ratio).Mul(decimal.NewFromInt(100))
	return fmt.Sprintf("Warning: You have less than %s%% of your budget remaining", pct.String())
}
