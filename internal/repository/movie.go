package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/reelpick/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// FindByKey 根据主键（IMDb ID 或临时标题键）查找电影
func (r *MovieRepository) FindByKey(ctx context.Context, key string) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).Where("cache_key = ?", key).First(&movie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// Upsert 创建或更新电影，冲突键为 cache_key，created_at 保持首次写入时间
func (r *MovieRepository) Upsert(ctx context.Context, movie *model.Movie) error {
	if movie.Key == "" {
		movie.AssignKey()
	}
	now := time.Now()
	if movie.CreatedAt.IsZero() {
		movie.CreatedAt = now
	}
	movie.UpdatedAt = now

	row := *movie
	row.ID = 0
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"imdb_id", "tmdb_id", "title", "year", "genres", "runtime", "director", "main_cast",
			"plot", "streaming_services", "rotten_tomatoes", "imdb_rating", "metascore",
			"poster_url", "updated_at",
		}),
	}).Create(&row).Error
}

// All 返回全部缓存电影（本地缓存匹配使用）
func (r *MovieRepository) All(ctx context.Context) ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.WithContext(ctx).Order("updated_at DESC").Find(&movies).Error
	return movies, err
}

func (r *MovieRepository) Acclaimed(ctx context.Context, minIMDb float64, minRT, limit int) ([]model.Movie, error) {
	query := r.db.WithContext(ctx).
		Where("imdb_rating > ? AND rotten_tomatoes > ?", minIMDb, minRT).
		Where("streaming_services IS NOT NULL AND streaming_services NOT IN ?", []string{"", "null", "[]"}).
		Order("year DESC").
		Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []model.Movie
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return acclaimed(rows, minIMDb, minRT, limit), nil
}
