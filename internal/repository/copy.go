package repository

import (
	"context"
	"fmt"
	"log"
)

// CopyReport 迁移统计
type CopyReport struct {
	Movies   int
	Rekeyed  int
	Skipped  int
	Keywords int
	Genres   int
}

// CopyStore 把 src 的电影、关键词和类型表写入 dst
// 有 IMDb ID 的临时键记录改用 IMDb ID 作主键，同一主键只保留最近更新的一条
func CopyStore(ctx context.Context, src, dst *Store) (*CopyReport, error) {
	if src == nil || dst == nil || src.Movies == nil || dst.Movies == nil {
		return nil, fmt.Errorf("迁移需要源和目标电影存储")
	}
	report := &CopyReport{}

	movies, err := src.Movies.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取源电影失败: %w", err)
	}
	seen := make(map[string]bool, len(movies))
	// All 按更新时间倒序，先到先得
	for i := range movies {
		movie := movies[i]
		oldKey := movie.Key
		movie.AssignKey()
		if seen[movie.Key] {
			log.Printf("[Migrate] 跳过重复记录 %s (%s)", oldKey, movie.Key)
			report.Skipped++
			continue
		}
		seen[movie.Key] = true
		if oldKey != "" && oldKey != movie.Key {
			log.Printf("[Migrate] 重命名 %s -> %s", oldKey, movie.Key)
			report.Rekeyed++
		}
		if err := dst.Movies.Upsert(ctx, &movie); err != nil {
			return report, fmt.Errorf("写入电影 %s 失败: %w", movie.Key, err)
		}
		report.Movies++
	}

	if src.Keywords != nil && dst.Keywords != nil {
		entries, err := src.Keywords.All(ctx)
		if err != nil {
			return report, fmt.Errorf("读取源关键词失败: %w", err)
		}
		for i := range entries {
			entry := entries[i]
			entry.ID = 0
			if err := dst.Keywords.Insert(ctx, &entry); err != nil {
				return report, fmt.Errorf("写入关键词 %s 失败: %w", entry.Name, err)
			}
			report.Keywords++
		}
	}

	if src.Genres != nil && dst.Genres != nil {
		genres, err := src.Genres.All(ctx)
		if err != nil {
			return report, fmt.Errorf("读取源类型表失败: %w", err)
		}
		if len(genres) > 0 {
			if err := dst.Genres.ReplaceAll(ctx, genres); err != nil {
				return report, fmt.Errorf("写入类型表失败: %w", err)
			}
			report.Genres = len(genres)
		}
	}
	return report, nil
}
