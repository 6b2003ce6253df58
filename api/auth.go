package api

import (
	"errors"
	"net/http"

	"budget/config"
	"budget/database"
	"budget/middleware"
	"budget/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg *config.Config
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50" example:"alice"`
	Password string `json:"password" binding:"required,min=6,max=72" example:"password123"`
	Email    string `json:"email" binding:"omitempty,email" example:"alice@example.com"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// Register 用户注册
// @Summary 用户注册
// @Description 创建账号并直接登录（写入会话 Cookie）
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Router /api/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	// 检查用户名是否已存在
	var existingUser models.User
	err := database.DB.Where("username = ?", req.Username).First(&existingUser).Error
	if err == nil {
		BadRequest(c, "Username already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		InternalError(c, SafeErrorMessage(err, "Failed to create user"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "Failed to hash password")
		return
	}

	user := models.User{
		Username: req.Username,
		Password: string(hashedPassword),
		Email:    req.Email,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "Failed to create user"))
		return
	}

	if !h.startSession(c, &user) {
		return
	}
	logrus.WithField("user_id", user.ID).Info("user registered")
	Created(c, user)
}

// Login 用户登录
// @Summary 用户登录
// @Description 校验用户名密码并写入会话 Cookie
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 401 "用户名或密码错误"
// @Failure 429 {object} ErrorResponse
// @Router /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	var user models.User
	if err := database.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		Unauthorized(c)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		Unauthorized(c)
		return
	}

	if !h.startSession(c, &user) {
		return
	}
	OK(c, user)
}

// Logout 退出登录
// @Summary 退出登录
// @Tags 认证
// @Success 200 "OK"
// @Router /api/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearSessionCookie(c)
	c.String(http.StatusOK, "OK")
}

// CurrentUser 获取当前登录用户
// @Summary 当前用户
// @Tags 认证
// @Produce json
// @Security SessionCookie
// @Success 200 {object} models.User
// @Failure 401 "未登录"
// @Router /api/user [get]
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		// 令牌有效但用户已不存在
		Unauthorized(c)
		return
	}

	OK(c, user)
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User) bool {
	token, err := middleware.GenerateToken(user.ID, user.Username, h.cfg.Session.ExpireTime)
	if err != nil {
		InternalError(c, "Failed to start session")
		return false
	}
	middleware.SetSessionCookie(c, token, h.cfg.Session.ExpireTime)
	return true
}
