package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/service"
)

// Recommender 推荐管道
type Recommender interface {
	Recommend(ctx context.Context, prompt string) (*service.Recommendation, error)
}

// UsageReporter 用量台账查询
type UsageReporter interface {
	Summary(ctx context.Context, days int) ([]model.UsageEntry, error)
}

// LandingPicker 首页精选
type LandingPicker interface {
	Picks(ctx context.Context) ([]model.Movie, error)
}

// Handler HTTP 处理器
type Handler struct {
	Recommender Recommender
	Ledger      UsageReporter
	Showcase    LandingPicker
}

// NewHandler 创建处理器
func NewHandler(recommender Recommender, ledger UsageReporter, showcase LandingPicker) *Handler {
	return &Handler{
		Recommender: recommender,
		Ledger:      ledger,
		Showcase:    showcase,
	}
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
