package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/utils"
)

const filterInstructions = `Translate the user's movie request into a TMDB discover filter.
Respond with exactly one JSON object and nothing else. Allowed keys:
  "with_genres": comma separated genre ids from the list above
  "primary_release_year": a single four digit year
  "primary_release_year.gte" / "primary_release_year.lte": year range bounds
  "vote_average.gte": minimum rating between 0 and 10
  "with_keywords": comma separated plain-text themes (e.g. "space, grief")
  "with_watch_providers": comma separated TMDB watch provider ids
Omit keys the request does not imply. Use with_keywords for topics such as space, war, cancer, love or loss.`

// FilterExtractor 提示词 -> FilterSet
type FilterExtractor struct {
	llm      LanguageModel
	genres   *GenreCatalog
	keywords *KeywordResolver
	timeout  time.Duration
}

func NewFilterExtractor(llm LanguageModel, genres *GenreCatalog, keywords *KeywordResolver, timeout time.Duration) *FilterExtractor {
	return &FilterExtractor{llm: llm, genres: genres, keywords: keywords, timeout: timeout}
}

// Extract 模型调用或解析失败时返回空 FilterSet（仍带提示词中检测到的平台）
func (e *FilterExtractor) Extract(ctx context.Context, prompt string) model.FilterSet {
	fs := e.extract(ctx, prompt)
	if detected := DetectPlatforms(prompt); len(detected) > 0 {
		fs.Platforms = mergePlatforms(fs.Platforms, detected)
	}
	return fs
}

func (e *FilterExtractor) extract(ctx context.Context, prompt string) model.FilterSet {
	if e.llm == nil {
		return model.FilterSet{}
	}

	system := filterInstructions
	if e.genres != nil {
		if list := e.genres.Instructions(ctx); list != "" {
			system = "Valid TMDB genres with their ids:\n" + list + "\n\n" + system
		}
	}

	callCtx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	completion, err := e.llm.Generate(callCtx, utils.Prompt{System: system, User: prompt, Temperature: 0})
	if err != nil {
		log.Printf("[Filter] 模型调用失败: %v", err)
		return model.FilterSet{}
	}

	fs, err := model.ParseFilterSet(completion.Text)
	if err != nil {
		log.Printf("[Filter] 解析模型输出失败: %v, 原文: %s", err, completion.Text)
		return model.FilterSet{}
	}
	if dropped := fs.Sanitize(); len(dropped) > 0 {
		log.Printf("[Filter] 丢弃非法字段: %s", strings.Join(dropped, ", "))
	}

	if len(fs.KeywordTerms) > 0 && e.keywords != nil {
		fs.KeywordIDs = e.keywords.ResolveTerms(ctx, fs.KeywordTerms)
		if len(fs.KeywordIDs) == 0 {
			log.Printf("[Filter] 关键词均未解析成功，忽略: %v", fs.KeywordTerms)
		}
	}
	if fs.IsEmpty() {
		log.Printf("[Filter] 提示词未提取出任何条件")
	}
	return fs
}

// withTimeout d <= 0 时不加超时
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
