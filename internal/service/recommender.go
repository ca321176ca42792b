package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/reelpick/internal/model"
)

// DefaultTopN 交给模型撰写推荐的候选数量
const DefaultTopN = 10

// ErrEmptyPrompt 提示词为空
var ErrEmptyPrompt = errors.New("prompt is empty")

// Recommendation 一次推荐的完整结果
type Recommendation struct {
	RequestID    string          `json:"request_id"`
	Prompt       string          `json:"prompt"`
	Filters      model.FilterSet `json:"filters"`
	Platforms    []string        `json:"platforms"`
	Stage        Stage           `json:"fallback_stage"`
	UsedFallback bool            `json:"used_fallback"`
	Movies       []*model.Movie  `json:"movies"`
	Narrative    string          `json:"narrative"`
	TokenUsage   int             `json:"token_usage"`
	ElapsedMs    int64           `json:"elapsed_ms"`
}

// RecommenderOptions 排序参数
type RecommenderOptions struct {
	TopN               int
	StreamingFilterMin int
}

// Recommender 提示词 -> 推荐文本的完整管道
type Recommender struct {
	extractor *FilterExtractor
	chain     *FallbackChain
	enricher  *Enricher
	composer  *Composer
	opts      RecommenderOptions
}

func NewRecommender(extractor *FilterExtractor, chain *FallbackChain, enricher *Enricher, composer *Composer, opts RecommenderOptions) *Recommender {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.StreamingFilterMin <= 0 {
		opts.StreamingFilterMin = DefaultStreamingFilterMin
	}
	return &Recommender{extractor: extractor, chain: chain, enricher: enricher, composer: composer, opts: opts}
}

// Recommend 只有最终撰写失败才返回错误，其余阶段失败均降级处理
func (r *Recommender) Recommend(ctx context.Context, prompt string) (*Recommendation, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	start := time.Now()
	reqID := uuid.NewString()
	log.Printf("[Recommend] %s 提示词: %s", reqID, prompt)

	// 1. 提取过滤条件
	filters := r.extractor.Extract(ctx, prompt)
	log.Printf("[Recommend] %s 过滤条件: %+v", reqID, filters)

	// 2. 逐级回退获取候选
	result := r.chain.Run(ctx, prompt, filters)
	log.Printf("[Recommend] %s 候选来源 %s, 共 %d 个", reqID, result.Stage, len(result.Candidates))

	// 3. 富化
	enriched := dropNotFound(r.enricher.EnrichAll(ctx, result.Candidates))

	// 4. 排序截断
	platforms := mergePlatforms(PlatformNames(result.Filters.WatchProviderIDs), result.Filters.Platforms)
	top := Rank(enriched, RankOptions{
		TopN:               r.opts.TopN,
		Platforms:          platforms,
		StreamingFilterMin: r.opts.StreamingFilterMin,
	})
	log.Printf("[Recommend] %s 富化 %d 部, 选出 %d 部", reqID, len(enriched), len(top))

	// 5. 撰写推荐
	usedFallback := result.Stage != StageDiscovery
	composition, err := r.composer.Compose(ctx, ComposeInput{
		RequestID:    reqID,
		Prompt:       prompt,
		Filters:      result.Filters,
		Platforms:    platforms,
		TopMovies:    top,
		UsedFallback: usedFallback,
		Stage:        result.Stage,
	})
	if err != nil {
		log.Printf("[Recommend] %s 撰写失败: %v", reqID, err)
		return nil, err
	}

	return &Recommendation{
		RequestID:    reqID,
		Prompt:       prompt,
		Filters:      result.Filters,
		Platforms:    platforms,
		Stage:        result.Stage,
		UsedFallback: usedFallback,
		Movies:       top,
		Narrative:    composition.Text,
		TokenUsage:   composition.TokenUsage,
		ElapsedMs:    time.Since(start).Milliseconds(),
	}, nil
}

// dropNotFound 去掉未找到的占位记录；全部未找到时原样保留
func dropNotFound(movies []*model.Movie) []*model.Movie {
	found := make([]*model.Movie, 0, len(movies))
	for _, m := range movies {
		if m != nil && !m.NotFound {
			found = append(found, m)
		}
	}
	if len(found) == 0 {
		return movies
	}
	return found
}
