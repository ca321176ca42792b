package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/repository"
	"github.com/user/reelpick/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	maxCastMembers  = 5
	searchCacheSize = 1000
	searchCacheTTL  = time.Hour
)

// EnricherOptions 富化参数
type EnricherOptions struct {
	Workers       int
	MaxCandidates int
	StreamingTTL  time.Duration
	PosterDir     string
}

// Enricher 标题 -> 完整电影记录（TMDB 元数据 + OMDb 评分），优先读取本地存储
type Enricher struct {
	lookup  MovieLookup
	ratings RatingsLookup
	images  ImageFetcher
	movies  repository.MovieStore
	opts    EnricherOptions

	searchCache *utils.SearchCache[int]
	group       singleflight.Group
	now         func() time.Time
}

func NewEnricher(lookup MovieLookup, ratings RatingsLookup, images ImageFetcher, movies repository.MovieStore, opts EnricherOptions) *Enricher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Enricher{
		lookup:      lookup,
		ratings:     ratings,
		images:      images,
		movies:      movies,
		opts:        opts,
		searchCache: utils.NewSearchCache[int](searchCacheSize, searchCacheTTL),
		now:         time.Now,
	}
}

// Enrich 按标题富化
func (e *Enricher) Enrich(ctx context.Context, title string) *model.Movie {
	return e.EnrichCandidate(ctx, model.Candidate{Title: title})
}

// EnrichCandidate 同一候选的并发请求合并为一次
func (e *Enricher) EnrichCandidate(ctx context.Context, c model.Candidate) *model.Movie {
	c.Title = strings.TrimSpace(c.Title)
	v, _, _ := e.group.Do(searchKey(c), func() (interface{}, error) {
		return e.enrich(ctx, c), nil
	})
	return v.(*model.Movie)
}

// EnrichAll 去重、截断后并发富化，结果顺序与候选一致
func (e *Enricher) EnrichAll(ctx context.Context, candidates []model.Candidate) []*model.Movie {
	candidates = DedupCandidates(candidates, e.opts.MaxCandidates)
	out := make([]*model.Movie, len(candidates))

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i, c := range candidates {
		g.Go(func() error {
			out[i] = e.EnrichCandidate(ctx, c)
			return nil
		})
	}
	// 任务本身不返回错误，失败以占位记录体现
	g.Wait()
	return out
}

func (e *Enricher) enrich(ctx context.Context, c model.Candidate) *model.Movie {
	stub := &model.Movie{Title: c.Title, Year: c.Year, NotFound: true}
	if c.Title == "" || ctx.Err() != nil {
		return stub
	}

	// 1. 搜索 TMDB ID
	id, err := e.resolveID(ctx, c)
	if err != nil {
		log.Printf("[Enrich] 搜索 '%s' 失败: %v", c.Title, err)
		return stub
	}
	if id == 0 {
		log.Printf("[Enrich] TMDB 未找到 '%s'", c.Title)
		return stub
	}

	// 2. 详情、演职员、流媒体
	details, err := e.lookup.MovieDetails(ctx, id)
	if err != nil {
		log.Printf("[Enrich] 获取详情失败 (TMDB %d): %v", id, err)
		if utils.IsNotFound(err) {
			// 缓存的 ID 已失效，下次重新搜索
			e.searchCache.Delete(searchKey(c))
		}
		return stub
	}
	fresh := movieFromDetails(details, c.Title)

	if credits, err := e.lookup.MovieCredits(ctx, id); err != nil {
		log.Printf("[Enrich] 获取演职员失败 (TMDB %d): %v", id, err)
	} else {
		fresh.Director = credits.Director()
		fresh.Cast = credits.TopCast(maxCastMembers)
	}

	streaming, err := e.lookup.WatchProviders(ctx, id)
	streamingOK := err == nil
	if !streamingOK {
		log.Printf("[Enrich] 获取流媒体失败 (TMDB %d): %v", id, err)
	} else {
		fresh.StreamingServices = streaming
	}
	fresh.AssignKey()

	// 3. 本地存储命中：不重新拉评分
	if stored := e.findStored(ctx, fresh.Key); stored != nil {
		return e.refreshStored(ctx, stored, fresh, streamingOK)
	}

	// 4. 未命中：合并评分后写入
	if fresh.IMDbID != "" && e.ratings != nil {
		if r, err := e.ratings.Ratings(ctx, fresh.IMDbID); err != nil {
			log.Printf("[Enrich] 获取评分失败 (%s): %v", fresh.IMDbID, err)
		} else {
			fresh.RottenTomatoes = r.RottenTomatoes
			fresh.IMDbRating = r.IMDbRating
			fresh.Metascore = r.Metascore
		}
	}
	if e.movies != nil {
		if err := e.movies.Upsert(ctx, fresh); err != nil {
			log.Printf("[Enrich] 保存 '%s' 失败: %v", fresh.Title, err)
		}
	}
	e.savePoster(ctx, fresh)
	return fresh
}

func (e *Enricher) resolveID(ctx context.Context, c model.Candidate) (int, error) {
	cacheKey := searchKey(c)
	if id, ok := e.searchCache.Get(cacheKey); ok {
		return id, nil
	}
	results, err := e.lookup.SearchMovie(ctx, c.Title)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	id := results[0].ID
	if c.Year != "" {
		for _, r := range results {
			if r.Year() == c.Year {
				id = r.ID
				break
			}
		}
	}
	e.searchCache.Set(cacheKey, id)
	return id, nil
}

func searchKey(c model.Candidate) string {
	return strings.ToLower(c.Title) + "|" + c.Year
}

func (e *Enricher) findStored(ctx context.Context, key string) *model.Movie {
	if e.movies == nil {
		return nil
	}
	stored, err := e.movies.FindByKey(ctx, key)
	if err != nil {
		log.Printf("[Enrich] 读取缓存 %s 失败: %v", key, err)
		return nil
	}
	return stored
}

// refreshStored 流媒体信息超过 StreamingTTL 时用新数据覆盖并回写
func (e *Enricher) refreshStored(ctx context.Context, stored, fresh *model.Movie, streamingOK bool) *model.Movie {
	if !streamingOK || e.opts.StreamingTTL <= 0 || e.now().Sub(stored.UpdatedAt) <= e.opts.StreamingTTL {
		return stored
	}
	stored.StreamingServices = fresh.StreamingServices
	if stored.TMDBID == 0 {
		stored.TMDBID = fresh.TMDBID
	}
	if stored.PosterURL == nil {
		stored.PosterURL = fresh.PosterURL
	}
	if err := e.movies.Upsert(ctx, stored); err != nil {
		log.Printf("[Enrich] 刷新 '%s' 流媒体失败: %v", stored.Title, err)
	}
	return stored
}

// savePoster 保存到 PosterDir/<tmdb_id>.jpg，已存在则跳过
func (e *Enricher) savePoster(ctx context.Context, m *model.Movie) {
	if e.opts.PosterDir == "" || e.images == nil || m.PosterURL == nil || m.TMDBID == 0 {
		return
	}
	path := filepath.Join(e.opts.PosterDir, fmt.Sprintf("%d.jpg", m.TMDBID))
	if _, err := os.Stat(path); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return
	}
	data, err := e.images.FetchImage(ctx, *m.PosterURL)
	if err != nil {
		log.Printf("[Enrich] 下载海报失败 (%s): %v", m.Title, err)
		return
	}
	if err := os.MkdirAll(e.opts.PosterDir, 0o755); err != nil {
		log.Printf("[Enrich] 创建海报目录失败: %v", err)
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Printf("[Enrich] 保存海报失败 (%s): %v", m.Title, err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		log.Printf("[Enrich] 保存海报失败 (%s): %v", m.Title, err)
	}
}

func movieFromDetails(d *TMDBMovieDetails, fallbackTitle string) *model.Movie {
	m := &model.Movie{
		TMDBID:    d.ID,
		IMDbID:    strings.TrimSpace(d.IMDbID),
		Title:     d.Title,
		Year:      yearOf(d.ReleaseDate),
		Director:  model.UnknownDirector,
		Plot:      d.Overview,
		PosterURL: d.PosterURL(),
	}
	if m.Title == "" {
		m.Title = fallbackTitle
	}
	if d.Runtime > 0 {
		runtime := d.Runtime
		m.Runtime = &runtime
	}
	for _, g := range d.Genres {
		m.Genres = append(m.Genres, g.Name)
	}
	return m
}

// DedupCandidates 按标题去重（保留首次出现），最多保留 limit 个
func DedupCandidates(candidates []model.Candidate, limit int) []model.Candidate {
	out := make([]model.Candidate, 0, len(candidates))
	seen := map[string]bool{}
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.Title))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
