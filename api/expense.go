package api

import (
	"context"
	"errors"
	"time"

	"budget/cache"
	"budget/database"
	"budget/middleware"
	"budget/models"
	"budget/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExpenseHandler 消费记录处理器
type ExpenseHandler struct {
	warningRatio float64
	notifier     service.Notifier
	cache        *cache.BudgetCache
	now          func() time.Time
}

// ExpenseOption 可选依赖
type ExpenseOption func(*ExpenseHandler)

// WithNotifier 低预算提醒的站外通道
func WithNotifier(n service.Notifier) ExpenseOption {
	return func(h *ExpenseHandler) { h.notifier = n }
}

// WithBudgetCache 预算缓存，扣减后失效
func WithBudgetCache(c *cache.BudgetCache) ExpenseOption {
	return func(h *ExpenseHandler) { h.cache = c }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) ExpenseOption {
	return func(h *ExpenseHandler) { h.now = now }
}

// NewExpenseHandler 创建消费记录处理器
func NewExpenseHandler(warningRatio float64, opts ...ExpenseOption) *ExpenseHandler {
	if warningRatio <= 0 || warningRatio >= 1 {
		warningRatio = service.DefaultWarningRatio
	}
	h := &ExpenseHandler{warningRatio: warningRatio, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CreateExpenseRequest 创建消费记录请求
type CreateExpenseRequest struct {
	Amount         float64              `json:"amount" binding:"required,gt=0" example:"45000"`
	Currency       string               `json:"currency" binding:"required,oneof=vnd usd eur" example:"vnd"`
	Category       string               `json:"category" binding:"required,oneof=food transportation utility rent health" example:"food"`
	Description    *string              `json:"description" binding:"omitempty,max=255" example:"Lunch"`
	ReceiptURL     *string              `json:"receiptUrl" binding:"omitempty,url"`
	ExtractedItems []models.ExpenseItem `json:"extractedItems" binding:"omitempty,dive"`
}

// CategorySummary 按类别和币种的月度汇总
type CategorySummary struct {
	Category string  `json:"category"`
	Currency string  `json:"currency"`
	Total    float64 `json:"total"`
	Count    int64   `json:"count"`
}

// Create 创建消费记录，并扣减当月预算
// @Summary 创建消费记录
// @Description 扣减当月（UTC）预算剩余额度，低于阈值时生成一条提醒
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body CreateExpenseRequest true "消费记录"
// @Success 201 {object} models.Expense
// @Failure 400 {object} ErrorResponse
// @Failure 401 "未登录"
// @Router /api/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	now := h.now().UTC()
	expense := models.Expense{
		UserID:      userID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		ReceiptURL:  req.ReceiptURL,
		Date:        now,
	}
	if req.ExtractedItems != nil {
		expense.ExtractedItems = models.ExpenseItems(req.ExtractedItems)
	}

	month := models.CurrentMonth(now)
	var (
		budget       *models.Budget
		notification *models.Notification
	)
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&expense).Error; err != nil {
			return err
		}
		var err error
		budget, notification, err = h.applyToBudget(tx, userID, month, expense.Amount, now)
		return err
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "Failed to create expense"))
		return
	}

	if budget != nil {
		ctx := c.Request.Context()
		if err := h.cache.Invalidate(ctx, userID, month); err != nil {
			logrus.WithError(err).Warn("budget cache invalidate failed")
		}
		if notification != nil {
			h.notify(ctx, budget, notification)
		}
	}

	Created(c, expense)
}

// applyToBudget 扣减当月预算；无预算时返回 nil
func (h *ExpenseHandler) applyToBudget(tx *gorm.DB, userID uint, month string, amount float64, now time.Time) (*models.Budget, *models.Notification, error) {
	var budget models.Budget
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND month = ?", userID, month).
		First(&budget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	change := service.ApplyExpense(budget.RemainingAmount, budget.TotalAmount, amount, h.warningRatio)
	if err := tx.Model(&budget).Update("remaining_amount", change.Remaining).Error; err != nil {
		return nil, nil, err
	}
	budget.RemainingAmount = change.Remaining

	if !change.Warn {
		return &budget, nil, nil
	}

	notification := models.Notification{
		UserID:  userID,
		Message: service.WarningMessage(h.warningRatio),
		Date:    now,
	}
	if err := tx.Create(&notification).Error; err != nil {
		return nil, nil, err
	}
	return &budget, &notification, nil
}

// notify 事务提交后投递站外提醒，失败只记日志
func (h *ExpenseHandler) notify(ctx context.Context, budget *models.Budget, n *models.Notification) {
	if h.notifier == nil {
		return
	}
	w := service.BudgetWarning{
		UserID:    budget.UserID,
		Month:     budget.Month,
		Total:     budget.TotalAmount,
		Remaining: budget.RemainingAmount,
		Message:   n.Message,
		At:        n.Date,
	}
	var user models.User
	if err := database.DB.Select("id", "username", "email").First(&user, budget.UserID).Error; err == nil {
		w.Username = user.Username
		w.Email = user.Email
	}
	if err := h.notifier.Notify(ctx, w); err != nil {
		logrus.WithError(err).WithField("user_id", budget.UserID).Warn("budget warning delivery failed")
	}
}

// List 获取某月消费记录
// @Summary 获取月度消费记录
// @Description 按日期倒序，无记录时返回空数组
// @Tags 消费记录
// @Produce json
// @Security SessionCookie
// @Param month path string true "月份 YYYY-MM"
// @Success 200 {array} models.Expense
// @Failure 400 {object} ErrorResponse
// @Failure 401 "未登录"
// @Router /api/expenses/{month} [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	month, ok := monthParam(c)
	if !ok {
		return
	}

	expenses, err := findMonthExpenses(userID, month)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "Failed to load expenses"))
		return
	}

	OK(c, expenses)
}

// Summary 某月按类别汇总
// @Summary 月度类别汇总
// @Tags 消费记录
// @Produce json
// @Security SessionCookie
// @Param month path string true "月份 YYYY-MM"
// @Success 200 {array} CategorySummary
// @Failure 400 {object} ErrorResponse
// @Failure 401 "未登录"
// @Router /api/expenses/{month}/summary [get]
func (h *ExpenseHandler) Summary(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	month, ok := monthParam(c)
	if !ok {
		return
	}
	start, end, _ := models.MonthRange(month)

	rows := []CategorySummary{}
	err := database.DB.Model(&models.Expense{}).
		Select("category, currency, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("user_id = ? AND date >= ? AND date < ?", userID, start, end).
		Group("category, currency").
		Order("category, currency").
		Scan(&rows).Error
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "Failed to summarize expenses"))
		return
	}

	OK(c, rows)
}

// findMonthExpenses 查询用户某月的消费记录，按日期倒序
func findMonthExpenses(userID uint, month string) ([]models.Expense, error) {
	start, end, err := models.MonthRange(month)
	if err != nil {
		return nil, err
	}
	expenses := []models.Expense{}
	err = database.DB.Where("user_id = ? AND date >= ? AND date < ?", userID, start, end).
		Order("date DESC").
		Find(&expenses).Error
	return expenses, err
}
