package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/repository"
)

const genreCacheKey = "genres"

// GenreCatalog 类型 ID -> 名称，进程内缓存
type GenreCatalog struct {
	store  repository.GenreStore
	lister GenreLister
	cache  *cache.Cache
}

func NewGenreCatalog(store repository.GenreStore, lister GenreLister) *GenreCatalog {
	return &GenreCatalog{
		store:  store,
		lister: lister,
		cache:  cache.New(6*time.Hour, time.Hour),
	}
}

// Load 读取类型表；存储为空时从 TMDB 拉取并回写。任何失败都返回空表
func (g *GenreCatalog) Load(ctx context.Context) map[string]string {
	if cached, found := g.cache.Get(genreCacheKey); found {
		if m, ok := cached.(map[string]string); ok {
			return m
		}
	}

	var genres []model.Genre
	if g.store != nil {
		var err error
		genres, err = g.store.All(ctx)
		if err != nil {
			log.Printf("[Genre] 读取类型表失败: %v", err)
			return map[string]string{}
		}
	}
	if len(genres) == 0 {
		genres = g.seed(ctx)
	}

	m := make(map[string]string, len(genres))
	for _, gr := range genres {
		m[gr.ID] = gr.Name
	}
	if len(m) > 0 {
		g.cache.SetDefault(genreCacheKey, m)
	}
	return m
}

func (g *GenreCatalog) seed(ctx context.Context) []model.Genre {
	if g.lister == nil {
		return nil
	}
	genres, err := g.lister.GenreList(ctx)
	if err != nil {
		log.Printf("[Genre] 从 TMDB 拉取类型表失败: %v", err)
		return nil
	}
	if g.store != nil && len(genres) > 0 {
		if err := g.store.ReplaceAll(ctx, genres); err != nil {
			log.Printf("[Genre] 保存类型表失败: %v", err)
		}
	}
	log.Printf("[Genre] 已从 TMDB 初始化 %d 个类型", len(genres))
	return genres
}

// IDsForNames 类型名（大小写不敏感）转 ID，按 ID 数值排序
func (g *GenreCatalog) IDsForNames(ctx context.Context, names []string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}
	var ids []string
	for id, name := range g.Load(ctx) {
		if want[strings.ToLower(name)] {
			ids = append(ids, id)
		}
	}
	sortNumericIDs(ids)
	return ids
}

// Instructions 供提示词使用的 "id: name" 列表，按 ID 排序
func (g *GenreCatalog) Instructions(ctx context.Context) string {
	m := g.Load(ctx)
	if len(m) == 0 {
		return ""
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sortNumericIDs(ids)
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteString(": ")
		b.WriteString(m[id])
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// sortNumericIDs 数字字符串按数值升序
func sortNumericIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
}
