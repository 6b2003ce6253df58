package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"budget/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initSessionTestConfig() {
	config.GlobalConfig = &config.Config{
		Server:  config.ServerConfig{Mode: "debug"},
		Session: config.SessionConfig{Secret: "test-session-secret", CookieName: "budget_session"},
	}
	InitSession(config.GlobalConfig)
}

func TestGenerateToken(t *testing.T) {
	initSessionTestConfig()
	defer func() { config.GlobalConfig = nil }()

	token, err := GenerateToken(1, "testuser", 24*time.Hour)
	require.NoError(t, err)
	assert.Greater(t, len(token), 20)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, "testuser", claims.Username)
}

func TestParseToken(t *testing.T) {
	initSessionTestConfig()
	defer func() { config.GlobalConfig = nil }()

	// 空字符串
	_, err := ParseToken("")
	assert.Error(t, err)

	// 无效格式
	_, err = ParseToken("not.a.valid.jwt")
	assert.Error(t, err)

	// 已过期
	expired, _ := GenerateToken(7, "old", -time.Minute)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	// 其他密钥签发
	token, _ := GenerateToken(7, "u", time.Hour)
	jwtSecret = []byte("another-secret")
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestSessionAuth(t *testing.T) {
	initSessionTestConfig()
	defer func() { config.GlobalConfig = nil }()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SessionAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.String(200, "id:%d", GetCurrentUserID(c))
	})

	// 无会话：401 且无响应体
	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Body.String())

	// 非法 Cookie
	req2 := httptest.NewRequest("GET", "/protected", nil)
	req2.AddCookie(&http.Cookie{Name: "budget_session", Value: "garbage"})
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusUnauthorized, w2.Code)

	// 有效 Cookie
	token, _ := GenerateToken(42, "user42", time.Hour)
	req3 := httptest.NewRequest("GET", "/protected", nil)
	req3.AddCookie(&http.Cookie{Name: "budget_session", Value: token})
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, req3)
	assert.Equal(t, 200, w3.Code)
	assert.Equal(t, "id:42", w3.Body.String())

	// Bearer 头同样可用
	req4 := httptest.NewRequest("GET", "/protected", nil)
	req4.Header.Set("Authorization", "Bearer "+token)
	w4 := httptest.NewRecorder()
	router.ServeHTTP(w4, req4)
	assert.Equal(t, 200, w4.Code)
}

func TestSessionCookie(t *testing.T) {
	initSessionTestConfig()
	defer func() { config.GlobalConfig = nil }()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	SetSessionCookie(c, "tok", time.Hour)
	cookie := w.Result().Cookies()[0]
	assert.Equal(t, "budget_session", cookie.Name)
	assert.Equal(t, "tok", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	ClearSessionCookie(c2)
	assert.True(t, w2.Result().Cookies()[0].MaxAge < 0)
}

func TestGetCurrentUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uint(0), GetCurrentUserID(c))

	c.Set("userID", uint(99))
	assert.Equal(t, uint(99), GetCurrentUserID(c))
}
