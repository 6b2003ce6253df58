package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"budget/models"
	"budget/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	prompt string
	image  string
	result service.AIResult
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, prompt, image string) (service.AIResult, error) {
	f.prompt, f.image = prompt, image
	return f.result, f.err
}

func newAIRouter(a ReceiptAnalyzer) *gin.Engine {
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	router.POST("/test-ai", NewAIHandler(a).TestAI)
	return router
}

func TestAIHandler_TextResponse(t *testing.T) {
	a := &fakeAnalyzer{result: service.AIResult{Text: "Spend less on rent."}}

	w := postJSON(newAIRouter(a), "/test-ai", `{"prompt":"  tips?  "}`)

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"response":"Spend less on rent."}`, w.Body.String())
	assert.Equal(t, "tips?", a.prompt)
	assert.Empty(t, a.image)
}

func TestAIHandler_ItemsResponse(t *testing.T) {
	a := &fakeAnalyzer{result: service.AIResult{Items: []models.ExpenseItem{
		{Amount: 12.5, Currency: "usd", Category: "food"},
	}}}

	w := postJSON(newAIRouter(a), "/test-ai", `{"prompt":"","image":"data:image/png;base64,aGVsbG8="}`)

	assert.Equal(t, 200, w.Code)
	var resp struct {
		Response []models.ExpenseItem `json:"response"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Response, 1)
	assert.Equal(t, "usd", resp.Response[0].Currency)
	// data URL 前缀已去掉
	assert.Equal(t, "aGVsbG8=", a.image)
}

func TestAIHandler_EmptyInput(t *testing.T) {
	a := &fakeAnalyzer{}

	w := postJSON(newAIRouter(a), "/test-ai", `{"prompt":"   "}`)

	assert.Equal(t, 400, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, "prompt", resp.Issues[0].Field)
}

func TestAIHandler_Disabled(t *testing.T) {
	w := postJSON(newAIRouter(nil), "/test-ai", `{"prompt":"hi"}`)
	assert.Equal(t, 503, w.Code)

	// 未启用时 NewReceiptClient 返回 nil 指针
	var client *service.ReceiptClient
	w = postJSON(newAIRouter(client), "/test-ai", `{"prompt":"hi"}`)
	assert.Equal(t, 503, w.Code)
}

func TestAIHandler_UpstreamError(t *testing.T) {
	a := &fakeAnalyzer{err: errors.New("ai upstream returned 500: boom")}

	w := postJSON(newAIRouter(a), "/test-ai", `{"prompt":"hi"}`)

	assert.Equal(t, 502, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Message)
}

func TestStripDataURL(t *testing.T) {
	assert.Equal(t, "abc", stripDataURL("data:image/jpeg;base64,abc"))
	assert.Equal(t, "abc", stripDataURL("abc"))
	assert.Equal(t, "", stripDataURL(""))
}
