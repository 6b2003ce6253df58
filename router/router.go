package router

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"budget/api"
	"budget/cache"
	"budget/config"
	_ "budget/docs"
	"budget/middleware"
	"budget/service"
	"budget/web"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps 路由依赖的外部组件，均可为空
type Deps struct {
	Cache    *cache.BudgetCache
	Notifier service.Notifier
	Analyzer api.ReceiptAnalyzer
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(CORSMiddleware(cfg.Server.CORSOrigins))

	// 内置测试页面
	page := func(c *gin.Context) {
		content, err := fs.ReadFile(web.StaticFS, "test-ai.html")
		if err != nil {
			c.String(http.StatusInternalServerError, "failed to load page")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", content)
	}
	r.GET("/", page)
	r.GET("/test-ai", page)

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := api.NewAuthHandler(cfg)
	budgetHandler := api.NewBudgetHandler(deps.Cache)
	expenseHandler := api.NewExpenseHandler(cfg.Budget.WarningRatio,
		api.WithNotifier(deps.Notifier),
		api.WithBudgetCache(deps.Cache),
	)
	notificationHandler := api.NewNotificationHandler()
	exportHandler := api.NewExportHandler()
	aiHandler := api.NewAIHandler(deps.Analyzer)

	apiGroup := r.Group("/api")
	{
		// 无需登录
		apiGroup.POST("/register", middleware.LoginRateLimit(10, time.Minute), authHandler.Register)
		apiGroup.POST("/login", middleware.LoginRateLimit(10, time.Minute), authHandler.Login)
		apiGroup.POST("/logout", authHandler.Logout)

		authorized := apiGroup.Group("")
		authorized.Use(middleware.SessionAuth())
		{
			authorized.GET("/user", authHandler.CurrentUser)

			authorized.GET("/budget/:month", budgetHandler.Get)
			authorized.POST("/budget", budgetHandler.Create)

			authorized.POST("/expenses", expenseHandler.Create)
			authorized.GET("/expenses/:month", expenseHandler.List)
			authorized.GET("/expenses/:month/summary", expenseHandler.Summary)

			authorized.GET("/export/:month/csv", exportHandler.ExportCSV)
			authorized.GET("/export/:month/excel", exportHandler.ExportExcel)

			authorized.GET("/notifications", notificationHandler.List)
			authorized.POST("/notifications/:id/read", notificationHandler.MarkRead)

			authorized.POST("/test-ai", aiHandler.TestAI)
		}
	}

	return r
}

// CORSMiddleware CORS 跨域中间件；仅对白名单内的来源回显并允许携带 Cookie
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		c.Writer.Header().Add("Vary", "Origin")
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
