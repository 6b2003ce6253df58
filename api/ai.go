package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"budget/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReceiptAnalyzer 文本/票据识别
type ReceiptAnalyzer interface {
	Analyze(ctx context.Context, prompt, image string) (service.AIResult, error)
}

// AIHandler AI 测试处理器
type AIHandler struct {
	analyzer ReceiptAnalyzer
}

// NewAIHandler 创建 AI 处理器；analyzer 为 nil 表示未启用
func NewAIHandler(analyzer ReceiptAnalyzer) *AIHandler {
	return &AIHandler{analyzer: analyzer}
}

// TestAIRequest AI 测试请求，image 为 base64（可带 data URL 前缀）
type TestAIRequest struct {
	Prompt string `json:"prompt" example:"How much did I spend?"`
	Image  string `json:"image"`
}

// TestAIResponse response 为字符串或消费条目数组
type TestAIResponse struct {
	Response interface{} `json:"response" swaggertype:"string"`
}

// TestAI 调用模型，带图片时返回识别出的消费条目
// @Summary AI 测试
// @Description 纯文本返回字符串；带图片时返回 ExpenseItem 数组，无法解析则返回原文
// @Tags AI
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body TestAIRequest true "提示词/图片"
// @Success 200 {object} TestAIResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 "未登录"
// @Failure 502 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/test-ai [post]
func (h *AIHandler) TestAI(c *gin.Context) {
	var req TestAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	image := stripDataURL(strings.TrimSpace(req.Image))
	if prompt == "" && image == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Issues:  []Issue{{Field: "prompt", Rule: "required_without", Message: "prompt or image is required"}},
		})
		return
	}

	if h.analyzer == nil {
		Error(c, http.StatusServiceUnavailable, "AI is not configured")
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), prompt, image)
	if err != nil {
		if errors.Is(err, service.ErrAIDisabled) {
			Error(c, http.StatusServiceUnavailable, "AI is not configured")
			return
		}
		logrus.WithError(err).Warn("ai request failed")
		Error(c, http.StatusBadGateway, SafeErrorMessage(err, "Failed to generate response"))
		return
	}

	OK(c, TestAIResponse{Response: result.Value()})
}

// stripDataURL 去掉 data:image/...;base64, 前缀
func stripDataURL(s string) string {
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}

var _ ReceiptAnalyzer = (*service.ReceiptClient)(nil)
