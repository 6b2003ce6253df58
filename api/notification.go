package api

import (
	"net/http"
	"strconv"

	"budget/database"
	"budget/middleware"
	"budget/models"

	"github.com/gin-gonic/gin"
)

// NotificationHandler 站内通知处理器
type NotificationHandler struct{}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

// List 获取当前用户的通知
// @Summary 通知列表
// @Description 按时间倒序
// @Tags 通知
// @Produce json
// @Security SessionCookie
// @Success 200 {array} models.Notification
// @Failure 401 "未登录"
// @Router /api/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	notifications := []models.Notification{}
	if err := database.DB.Where("user_id = ?", userID).
		Order("date DESC").
		Find(&notifications).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "Failed to load notifications"))
		return
	}

	OK(c, notifications)
}

// MarkRead 标记已读，可重复调用
// @Summary 标记通知已读
// @Tags 通知
// @Security SessionCookie
// @Param id path int true "通知ID"
// @Success 200 "OK"
// @Failure 400 {object} ErrorResponse
// @Failure 401 "未登录"
// @Router /api/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "Invalid notification id")
		return
	}

	// 只能修改自己的通知；不存在的 ID 视为空操作
	if err := database.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", uint(id), userID).
		Update("is_read", true).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "Failed to update notification"))
		return
	}

	c.String(http.StatusOK, "OK")
}
