package service

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/repository"
	"golang.org/x/sync/singleflight"
)

// DefaultKeywordThreshold 模糊匹配的最低相似度
const DefaultKeywordThreshold = 0.8

// KeywordResolver 关键词文本 -> TMDB keyword id：先查本地缓存（模糊匹配），再实时搜索
type KeywordResolver struct {
	store     repository.KeywordStore
	searcher  KeywordSearcher
	threshold float64

	mu      sync.Mutex
	loaded  bool
	entries []model.KeywordEntry
	group   singleflight.Group
}

func NewKeywordResolver(store repository.KeywordStore, searcher KeywordSearcher, threshold float64) *KeywordResolver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultKeywordThreshold
	}
	return &KeywordResolver{store: store, searcher: searcher, threshold: threshold}
}

// Resolve 解析单个关键词
func (r *KeywordResolver) Resolve(ctx context.Context, text string) (int, bool) {
	term := normalizeKeyword(text)
	if term == "" {
		return 0, false
	}
	if id, ok := r.lookup(ctx, term); ok {
		return id, true
	}

	v, err, _ := r.group.Do(term, func() (interface{}, error) {
		// 并发请求可能已经写入缓存
		if id, ok := r.lookup(ctx, term); ok {
			return id, nil
		}
		return r.fetch(ctx, term)
	})
	if err != nil {
		log.Printf("[Keyword] 实时搜索 '%s' 失败: %v", term, err)
		return 0, false
	}
	id := v.(int)
	return id, id > 0
}

// ResolveAll 逗号分隔的多个关键词，返回成功解析的 ID
func (r *KeywordResolver) ResolveAll(ctx context.Context, text string) []string {
	return r.ResolveTerms(ctx, strings.Split(text, ","))
}

// ResolveTerms 逐个解析，去重后保持顺序
func (r *KeywordResolver) ResolveTerms(ctx context.Context, terms []string) []string {
	var ids []string
	seen := map[int]bool{}
	for _, t := range terms {
		id, ok := r.Resolve(ctx, t)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, strconv.Itoa(id))
	}
	return ids
}

// lookup 懒加载缓存后做模糊匹配
func (r *KeywordResolver) lookup(ctx context.Context, term string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded && r.store != nil {
		entries, err := r.store.All(ctx)
		if err != nil {
			// 下次调用再尝试加载
			log.Printf("[Keyword] 加载关键词缓存失败: %v", err)
		} else {
			r.entries = entries
			r.loaded = true
		}
	}

	best, bestScore := -1, 0.0
	for i, e := range r.entries {
		score := similarity(term, normalizeKeyword(e.Name))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < r.threshold {
		return 0, false
	}
	match := r.entries[best]
	if match.Name != term {
		log.Printf("[Keyword] 模糊匹配 '%s' -> '%s' (ID %d, %.2f)", term, match.Name, match.KeywordID, bestScore)
	}
	return match.KeywordID, true
}

func (r *KeywordResolver) fetch(ctx context.Context, term string) (int, error) {
	if r.searcher == nil {
		return 0, nil
	}
	id, err := r.searcher.SearchKeyword(ctx, term)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		log.Printf("[Keyword] TMDB 未找到关键词 '%s'", term)
		return 0, nil
	}

	entry := model.KeywordEntry{Name: term, KeywordID: id}
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Insert(ctx, &entry); err != nil {
			log.Printf("[Keyword] 保存关键词 '%s' 失败: %v", term, err)
		}
	}
	return id, nil
}

func normalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// similarity 1 - 编辑距离 / 较长串长度
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}
