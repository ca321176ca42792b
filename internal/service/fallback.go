package service

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/repository"
	"github.com/user/reelpick/internal/utils"
)

// Stage 候选来源
type Stage string

const (
	StageNone          Stage = "none"
	StageDiscovery     Stage = "discovery"
	StageLocalCache    Stage = "local_cache"
	StagePromptAsTitle Stage = "prompt_as_title"
	StageModel         Stage = "model"
)

const (
	maxTitleWords     = 10
	minPromptWordLen  = 3
	fallbackTitleTemp = 0.7
)

var (
	titleCharset  = regexp.MustCompile(`^[a-zA-Z0-9 .:'\-?!&()]+$`)
	listMarker    = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)
	trailingYear  = regexp.MustCompile(`\s*\((\d{4})\)$`)
	reasonDivider = regexp.MustCompile(`\s+[-–—]\s+`)
)

// FallbackResult 候选及其来源阶段；Filters 为实际用于发现的条件
type FallbackResult struct {
	Candidates []model.Candidate
	Stage      Stage
	Filters    model.FilterSet
}

// FallbackChain 依次尝试：条件发现 -> 本地缓存 -> 提示词当片名 -> 让模型直接给片名
type FallbackChain struct {
	discoverer *Discoverer
	movies     repository.MovieStore
	enricher   *Enricher
	genres     *GenreCatalog
	llm        LanguageModel
	timeout    time.Duration
	now        func() time.Time
}

func NewFallbackChain(discoverer *Discoverer, movies repository.MovieStore, enricher *Enricher, genres *GenreCatalog, llm LanguageModel, timeout time.Duration) *FallbackChain {
	return &FallbackChain{
		discoverer: discoverer,
		movies:     movies,
		enricher:   enricher,
		genres:     genres,
		llm:        llm,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Run 第一个得到非空候选的阶段胜出，阶段之间不合并
func (f *FallbackChain) Run(ctx context.Context, prompt string, filters model.FilterSet) FallbackResult {
	if filters.HasKeywords() || filters.HasGenres() {
		if c := f.discoverer.Discover(ctx, filters); len(c) > 0 {
			return FallbackResult{Candidates: c, Stage: StageDiscovery, Filters: filters}
		}
		log.Printf("[Fallback] 条件发现无结果，尝试本地缓存")
		if c := f.scanLocal(ctx, prompt, filters); len(c) > 0 {
			return FallbackResult{Candidates: c, Stage: StageLocalCache, Filters: filters}
		}
	} else {
		log.Printf("[Fallback] 没有类型/关键词条件，尝试把提示词当作片名")
	}

	if c, derived, ok := f.promptAsTitle(ctx, prompt, filters); ok {
		return FallbackResult{Candidates: c, Stage: StagePromptAsTitle, Filters: derived}
	}

	if c := f.askModel(ctx, prompt); len(c) > 0 {
		return FallbackResult{Candidates: c, Stage: StageModel, Filters: filters}
	}
	return FallbackResult{Stage: StageNone, Filters: filters}
}

// scanLocal 年份相同且片名包含提示词中任一单词
func (f *FallbackChain) scanLocal(ctx context.Context, prompt string, filters model.FilterSet) []model.Candidate {
	if f.movies == nil || !filters.HasYear() {
		return nil
	}
	words := promptWords(prompt)
	if len(words) == 0 {
		return nil
	}
	movies, err := f.movies.All(ctx)
	if err != nil {
		log.Printf("[Fallback] 读取本地缓存失败: %v", err)
		return nil
	}

	var out []model.Candidate
	for _, m := range movies {
		if m.Year != filters.ReleaseYear {
			continue
		}
		title := strings.ToLower(m.Title)
		for _, w := range words {
			if strings.Contains(title, w) {
				out = append(out, model.Candidate{Title: m.Title, Year: m.Year})
				break
			}
		}
	}
	if len(out) > 0 {
		log.Printf("[Fallback] 本地缓存匹配到 %d 部电影", len(out))
	}
	return out
}

func promptWords(prompt string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(prompt)) {
		if len([]rune(w)) >= minPromptWordLen {
			words = append(words, w)
		}
	}
	return words
}

// promptAsTitle 把提示词当片名富化，用其类型/年份重新发现
func (f *FallbackChain) promptAsTitle(ctx context.Context, prompt string, filters model.FilterSet) ([]model.Candidate, model.FilterSet, bool) {
	if f.enricher == nil {
		return nil, filters, false
	}
	movie := f.enricher.Enrich(ctx, prompt)
	if movie == nil || movie.NotFound || len(movie.Genres) == 0 {
		log.Printf("[Fallback] 提示词无法作为片名解析")
		return nil, filters, false
	}

	// 只沿用平台条件，其余条件来自匹配到的电影
	derived := model.FilterSet{
		ReleaseYear:      movie.Year,
		WatchProviderIDs: append([]string(nil), filters.WatchProviderIDs...),
		Platforms:        append([]string(nil), filters.Platforms...),
	}
	if f.genres != nil {
		derived.GenreIDs = f.genres.IDsForNames(ctx, movie.Genres)
	}
	if !derived.HasGenres() && !derived.HasYear() {
		log.Printf("[Fallback] '%s' 没有可用的类型或年份", movie.Title)
		return nil, filters, false
	}
	log.Printf("[Fallback] 由 '%s' 推导条件: genres=%v year=%s", movie.Title, derived.GenreIDs, derived.ReleaseYear)

	c := f.discoverer.Discover(ctx, derived)
	return c, derived, len(c) > 0
}

func (f *FallbackChain) askModel(ctx context.Context, prompt string) []model.Candidate {
	if f.llm == nil {
		return nil
	}
	system := "Today is " + f.now().Format("January 2, 2006") + ".\n" +
		"The user is looking for a movie we could not match in our catalog. Never claim a title does not exist.\n" +
		"Suggest 5 to 10 real, already released movies that fit the request by name, theme or genre.\n" +
		"Write one title per line in the form: Title (YEAR). No numbering, no commentary."

	callCtx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()
	completion, err := f.llm.Generate(callCtx, utils.Prompt{
		System:      system,
		User:        "The user prompt was: '" + prompt + "'",
		Temperature: fallbackTitleTemp,
	})
	if err != nil {
		log.Printf("[Fallback] 模型推荐片名失败: %v", err)
		return nil
	}
	c := ParseTitleLines(completion.Text)
	log.Printf("[Fallback] 模型给出 %d 个片名", len(c))
	return c
}

// ParseTitleLines 从模型输出中挑出像片名的行；结尾的 "(YYYY)" 作为年份
func ParseTitleLines(text string) []model.Candidate {
	var out []model.Candidate
	for _, line := range strings.Split(text, "\n") {
		line = listMarker.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.Trim(line, "*\"` ")
		if loc := reasonDivider.FindStringIndex(line); loc != nil && loc[0] > 0 {
			line = strings.TrimSpace(line[:loc[0]])
		}
		line = strings.Trim(line, "*\"` ")
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		if len(strings.Fields(line)) > maxTitleWords ||
			strings.Contains(strings.ToLower(line), "as an ai") ||
			!titleCharset.MatchString(line) {
			continue
		}

		c := model.Candidate{Title: line}
		if m := trailingYear.FindStringSubmatchIndex(line); m != nil {
			c.Year = line[m[2]:m[3]]
			c.Title = strings.TrimSpace(line[:m[0]])
		}
		if c.Title != "" {
			out = append(out, c)
		}
	}
	return out
}
