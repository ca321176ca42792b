package repository

import (
	"context"

	"github.com/user/reelpick/internal/model"
)

// MovieStore 电影记录存储，主键为 model.Movie.Key
type MovieStore interface {
	// FindByKey 未找到时返回 nil, nil
	FindByKey(ctx context.Context, key string) (*model.Movie, error)
	Upsert(ctx context.Context, movie *model.Movie) error
	All(ctx context.Context) ([]model.Movie, error)
	// Acclaimed IMDb 与烂番茄评分都高于阈值且有流媒体的电影，按年份倒序，最多 limit 部
	Acclaimed(ctx context.Context, minIMDb float64, minRT, limit int) ([]model.Movie, error)
}

// KeywordStore 关键词缓存
type KeywordStore interface {
	All(ctx context.Context) ([]model.KeywordEntry, error)
	Insert(ctx context.Context, entry *model.KeywordEntry) error
}

// GenreStore 类型表
type GenreStore interface {
	All(ctx context.Context) ([]model.Genre, error)
	ReplaceAll(ctx context.Context, genres []model.Genre) error
}

// UsageStore API 调用台账
type UsageStore interface {
	Increment(ctx context.Context, date, provider string) error
	// Since 返回 date（含）之后的全部计数
	Since(ctx context.Context, date string) ([]model.UsageEntry, error)
	// DeleteBefore 清理 date 之前的计数
	DeleteBefore(ctx context.Context, date string) (int64, error)
}

// PromptLogStore 提示词审计日志
type PromptLogStore interface {
	Append(ctx context.Context, entry *model.PromptLog) error
}

// Store 仓库集合，数据库与本地文件两种实现
type Store struct {
	Movies   MovieStore
	Keywords KeywordStore
	Genres   GenreStore
	Usage    UsageStore
	Prompts  PromptLogStore

	closer func() error
}

// Close 释放底层连接
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// acclaimed 按原顺序筛选，limit <= 0 不截断
func acclaimed(movies []model.Movie, minIMDb float64, minRT, limit int) []model.Movie {
	out := make([]model.Movie, 0, len(movies))
	for _, m := range movies {
		if m.IMDbRating == nil || *m.IMDbRating <= minIMDb {
			continue
		}
		if m.RottenTomatoes == nil || *m.RottenTomatoes <= minRT {
			continue
		}
		if !m.HasStreaming() {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
