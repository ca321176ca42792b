package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/user/reelpick/internal/handler"
	"github.com/user/reelpick/internal/middleware"
	"github.com/user/reelpick/internal/utils"
)

// New 创建 gin 引擎并注册中间件与路由
func New(h *handler.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.POST("/recommend", h.Recommend)
		api.GET("/usage", h.Usage)
		api.GET("/landing", h.Landing)
	}

	r.NoRoute(func(c *gin.Context) {
		utils.NotFound(c, "")
	})
}
