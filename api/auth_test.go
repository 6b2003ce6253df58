package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"budget/config"
	"budget/database"
	"budget/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

func setupSession(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "debug"},
		Session: config.SessionConfig{Secret: "test-secret", CookieName: "budget_session", ExpireTime: time.Hour},
	}
	config.GlobalConfig = cfg
	middleware.InitSession(cfg)
	t.Cleanup(func() { config.GlobalConfig = nil })
	return cfg
}

var userColumns = []string{"id", "username", "password", "email", "created_at", "updated_at"}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Register(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupSession(t)

	// 检查用户名不存在
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("newuser").
		WillReturnRows(sqlmock.NewRows(userColumns))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.POST("/register", NewAuthHandler(cfg).Register)

	w := postJSON(router, "/register", `{"username":"newuser","password":"password123","email":"new@example.com"}`)

	assert.Equal(t, 201, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "budget_session=")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "HttpOnly")

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "newuser", resp["username"])
	assert.Equal(t, float64(1), resp["id"])
	assert.NotContains(t, resp, "password")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Register_UsernameExists(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupSession(t)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("existinguser").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "existinguser", "hash", "", time.Now(), time.Now()))

	router := gin.New()
	router.POST("/register", NewAuthHandler(cfg).Register)

	w := postJSON(router, "/register", `{"username":"existinguser","password":"password123"}`)

	assert.Equal(t, 400, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Username already exists", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupSession(t)

	router := gin.New()
	router.POST("/register", NewAuthHandler(cfg).Register)

	w := postJSON(router, "/register", `{"username":"ab","password":"password123"}`)

	assert.Equal(t, 400, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, "username", resp.Issues[0].Field)
	assert.Equal(t, "min", resp.Issues[0].Rule)
	// 校验失败不访问数据库
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupSession(t)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("loginuser").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "loginuser", string(hashed), "login@example.com", time.Now(), time.Now()))

	router := gin.New()
	router.POST("/login", NewAuthHandler(cfg).Login)

	w := postJSON(router, "/login", `{"username":"loginuser","password":"password123"}`)

	assert.Equal(t, 200, w.Code)
	cookie := w.Result().Cookies()
	require.Len(t, cookie, 1)
	claims, err := middleware.ParseToken(cookie[0].Value)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "loginuser", resp["username"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupSession(t)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("loginuser").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "loginuser", string(hashed), "", time.Now(), time.Now()))

	router := gin.New()
	router.POST("/login", NewAuthHandler(cfg).Login)

	w := postJSON(router, "/login", `{"username":"loginuser","password":"wrong-password"}`)

	assert.Equal(t, 401, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Header().Get("Set-Cookie"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login_UserNotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupSession(t)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("nouser").
		WillReturnRows(sqlmock.NewRows(userColumns))

	router := gin.New()
	router.POST("/login", NewAuthHandler(cfg).Login)

	w := postJSON(router, "/login", `{"username":"nouser","password":"any"}`)

	assert.Equal(t, 401, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Logout(t *testing.T) {
	cfg := setupSession(t)

	router := gin.New()
	router.POST("/logout", NewAuthHandler(cfg).Logout)

	w := postJSON(router, "/logout", "")

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "budget_session=;")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestAuthHandler_CurrentUser(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := setupSession(t)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "alice", "hash", "alice@example.com", time.Now(), time.Now()))

	router := gin.New()
	router.Use(setUserIDMiddleware(7))
	router.GET("/user", NewAuthHandler(cfg).CurrentUser)

	req := httptest.NewRequest("GET", "/user", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp["username"])
	assert.Equal(t, "alice@example.com", resp["email"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_CurrentUser_Unauthenticated(t *testing.T) {
	cfg := setupSession(t)

	router := gin.New()
	router.GET("/user", middleware.SessionAuth(), NewAuthHandler(cfg).CurrentUser)

	req := httptest.NewRequest("GET", "/user", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 401, w.Code)
	assert.Empty(t, w.Body.String())
}
