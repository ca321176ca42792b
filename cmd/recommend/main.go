package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/user/reelpick/internal/config"
	"github.com/user/reelpick/internal/repository"
	"github.com/user/reelpick/internal/service"
)

// 从标准输入读取一条提示词，输出推荐文本
func main() {
	if err := run(); err != nil {
		log.Printf("推荐失败: %v", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg := config.Load()

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("读取提示词失败: %w", err)
	}
	prompt := strings.TrimSpace(string(raw))
	if prompt == "" {
		return service.ErrEmptyPrompt
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := repository.OpenWithFallback(cfg)
	defer store.Close()

	svcs, err := service.NewServices(ctx, cfg, store)
	if err != nil {
		return err
	}

	rec, err := svcs.Recommender.Recommend(ctx, prompt)
	if err != nil {
		return err
	}
	fmt.Println(rec.Narrative)
	return nil
}
