package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/reelpick/internal/config"
	"github.com/user/reelpick/internal/handler"
	"github.com/user/reelpick/internal/repository"
	"github.com/user/reelpick/internal/router"
	"github.com/user/reelpick/internal/service"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg := config.Load()

	// 初始化存储
	store := repository.OpenWithFallback(cfg)
	defer store.Close()

	// 初始化服务
	svcs, err := service.NewServices(context.Background(), cfg, store)
	if err != nil {
		log.Fatalf("服务初始化失败: %v", err)
	}

	// 启动定时清理任务
	svcs.Cleanup.Start()
	defer svcs.Cleanup.Stop()

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.NewHandler(svcs.Recommender, svcs.Ledger, svcs.Landing)
	r := router.New(h)

	// 写超时需覆盖一次推荐中的多次模型调用
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   3*cfg.LLMTimeout + 30*time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Println("服务器强制关闭:", err)
	}

	log.Println("服务器已退出")
}
