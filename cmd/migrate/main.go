package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/user/reelpick/internal/config"
	"github.com/user/reelpick/internal/repository"
)

// 把本地文件缓存（CACHE_DIR）整体迁移到 STORE_BACKEND 指定的数据库
func main() {
	if err := run(); err != nil {
		log.Printf("迁移失败: %v", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.StoreBackend == config.BackendFile {
		return errors.New("STORE_BACKEND=file 时没有可迁移的目标数据库")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := repository.NewFileStore(cfg.CacheDir)
	if err != nil {
		return err
	}
	dst, err := repository.Open(cfg)
	if err != nil {
		return err
	}
	defer dst.Close()

	report, err := repository.CopyStore(ctx, src, dst)
	if err != nil {
		return err
	}
	log.Printf("[Migrate] 完成: 电影 %d 部（重命名 %d, 跳过 %d），关键词 %d 个，类型 %d 个",
		report.Movies, report.Rekeyed, report.Skipped, report.Keywords, report.Genres)
	return nil
}
