package api

import (
	"errors"

	"budget/cache"
	"budget/database"
	"budget/middleware"
	"budget/models"
	"budget/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const monthFormatHint = "YYYY-MM"

// BudgetHandler 月度预算处理器
type BudgetHandler struct {
	cache *cache.BudgetCache
}

// NewBudgetHandler 创建预算处理器，cache 可为 nil
func NewBudgetHandler(c *cache.BudgetCache) *BudgetHandler {
	return &BudgetHandler{cache: c}
}

// CreateBudgetRequest 设置预算请求
type CreateBudgetRequest struct {
	TotalAmount float64 `json:"totalAmount" binding:"required,gt=0" example:"5000000"`
	Month       string  `json:"month" binding:"required,datetime=2006-01" example:"2024-05"`
}

// monthParam 读取并校验路径参数 :month
func monthParam(c *gin.Context) (string, bool) {
	month := c.Param("month")
	if _, _, err := models.MonthRange(month); err != nil {
		c.JSON(400, ErrorResponse{
			Message: "Validation failed",
			Issues:  []Issue{{Field: "month", Rule: "datetime", Message: "must match format " + monthFormatHint}},
		})
		return "", false
	}
	return month, true
}

// Get 获取某月预算
// @Summary 获取月度预算
// @Description 不存在时返回 null
// @Tags 预算
// @Produce json
// @Security SessionCookie
// @Param month path string true "月份 YYYY-MM"
// @Success 200 {object} models.Budget
// @Failure 400 {object} ErrorResponse
// @Failure 401 "未登录"
// @Router /api/budget/{month} [get]
func (h *BudgetHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	month, ok := monthParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if b, hit, err := h.cache.Get(ctx, userID, month); err != nil {
		logrus.WithError(err).Warn("budget cache get failed")
	} else if hit {
		OK(c, b)
		return
	}

	var budget models.Budget
	err := database.DB.Where("user_id = ? AND month = ?", userID, month).First(&budget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		OK(c, nil)
		return
	}
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "Failed to load budget"))
		return
	}

	if err := h.cache.Set(ctx, &budget); err != nil {
		logrus.WithError(err).Warn("budget cache set failed")
	}
	OK(c, budget)
}

// Create 设置月度预算；已存在时更新总额，剩余额度按差值平移
// @Summary 设置月度预算
// @Tags 预算
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body CreateBudgetRequest true "预算"
// @Success 201 {object} models.Budget
// @Failure 400 {object} ErrorResponse
// @Failure 401 "未登录"
// @Router /api/budget [post]
func (h *BudgetHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	var budget models.Budget
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND month = ?", userID, req.Month).First(&budget).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			budget = models.Budget{
				UserID:          userID,
				TotalAmount:     req.TotalAmount,
				RemainingAmount: req.TotalAmount,
				Month:           req.Month,
			}
			return tx.Create(&budget).Error
		}
		if err != nil {
			return err
		}

		budget.RemainingAmount = service.ResizeBudget(budget.TotalAmount, budget.RemainingAmount, req.TotalAmount)
		budget.TotalAmount = req.TotalAmount
		return tx.Model(&budget).Updates(map[string]interface{}{
			"total_amount":     budget.TotalAmount,
			"remaining_amount": budget.RemainingAmount,
		}).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "Failed to save budget"))
		return
	}

	if err := h.cache.Invalidate(c.Request.Context(), userID, req.Month); err != nil {
		logrus.WithError(err).Warn("budget cache invalidate failed")
	}
	Created(c, budget)
}
