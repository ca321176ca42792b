package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/service"
	"github.com/user/reelpick/internal/utils"
)

const (
	defaultUsageDays = 7
	maxUsageDays     = 90
)

// RecommendReq 推荐请求
type RecommendReq struct {
	Prompt string `json:"prompt" binding:"required,max=2000"`
}

// Recommend 根据提示词生成电影推荐
// POST /api/recommend {"prompt": "..."}
func (h *Handler) Recommend(c *gin.Context) {
	var req RecommendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "prompt 不能为空且不超过 2000 字符")
		return
	}

	rec, err := h.Recommender.Recommend(c.Request.Context(), req.Prompt)
	switch {
	case errors.Is(err, service.ErrEmptyPrompt):
		utils.BadRequest(c, "prompt 不能为空")
		return
	case errors.Is(err, service.ErrNarration):
		log.Printf("[Recommend] 生成推荐失败: %v", err)
		utils.Error(c, http.StatusBadGateway, "生成推荐失败，请稍后重试")
		return
	case err != nil:
		log.Printf("[Recommend] 推荐失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}

	utils.Success(c, rec)
}

// Usage 最近几天的外部调用次数
// GET /api/usage?days=7
func (h *Handler) Usage(c *gin.Context) {
	days := defaultUsageDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxUsageDays {
			utils.BadRequest(c, "days 必须在 1 到 90 之间")
			return
		}
		days = n
	}

	entries, err := h.Ledger.Summary(c.Request.Context(), days)
	if err != nil {
		log.Printf("[Usage] 查询用量失败: %v", err)
		utils.InternalServerError(c, "查询用量失败")
		return
	}

	utils.Success(c, gin.H{
		"days":    days,
		"entries": entries,
	})
}

// Landing 首页随机展示的高分电影
// GET /api/landing
func (h *Handler) Landing(c *gin.Context) {
	movies, err := h.Showcase.Picks(c.Request.Context())
	if err != nil {
		log.Printf("[Landing] 查询精选失败: %v", err)
		utils.InternalServerError(c, "查询精选失败")
		return
	}
	if movies == nil {
		movies = []model.Movie{}
	}
	utils.Success(c, gin.H{"results": movies})
}
