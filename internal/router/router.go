package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/cinematch/internal/handler"
	"github.com/user/cinematch/internal/middleware"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== 认证 ====================
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
	}

	// ==================== 检索 API ====================
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(h.Config.AppSecret))
	{
		api.GET("/recommend", h.Recommend)
		api.GET("/filters", h.Filters)
		api.GET("/lookup/:dimension", h.LookupSearch)
		api.GET("/movies/:id/similar", h.SimilarMovies)
	}

	// ==================== 需要登录 ====================
	user := r.Group("/api")
	user.Use(middleware.RequireAuth(h.Config.AppSecret))
	{
		user.POST("/favorites/:id", h.ToggleFavorite)
		user.GET("/favorites", h.Favorites)
		user.POST("/movies/:id/rate", h.RateModel)
	}

	// ==================== 管理后台 ====================
	admin := r.Group("/api/admin")
	admin.Use(middleware.RequireAuth(h.Config.AppSecret))
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/movies", h.AdminCreateMovie)
		admin.PUT("/movies/:id", h.AdminUpdateMovie)
		admin.DELETE("/movies/:id", h.AdminDeleteMovie)
		admin.POST("/movies/import", h.AdminImportMovie)
		admin.POST("/reindex", h.AdminReindex)
	}
}
