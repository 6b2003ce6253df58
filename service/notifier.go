package service

import (
	"context"
	"errors"
	"time"
)

// BudgetWarning 低预算提醒事件
type BudgetWarning struct {
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Month     string    `json:"month"`
	Total     float64   `json:"total_amount"`
	Remaining float64   `json:"remaining_amount"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// Notifier 站外提醒通道（邮件、消息队列等）
type Notifier interface {
	Notify(ctx context.Context, w BudgetWarning) error
}

// Notifiers 扇出到多个通道，全部执行后合并错误
type Notifiers []Notifier

// Notify 实现 Notifier
func (ns Notifiers) Notify(ctx context.Context, w BudgetWarning) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
