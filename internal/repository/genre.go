package repository

import (
	"context"

	"github.com/user/reelpick/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GenreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) *GenreRepository {
	return &GenreRepository{db: db}
}

// All 返回全部类型，按 ID 排序
func (r *GenreRepository) All(ctx context.Context) ([]model.Genre, error) {
	var genres []model.Genre
	err := r.db.WithContext(ctx).Order("genre_id ASC").Find(&genres).Error
	return genres, err
}

// ReplaceAll 在事务中用新列表覆盖类型表
func (r *GenreRepository) ReplaceAll(ctx context.Context, genres []model.Genre) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Genre{}).Error; err != nil {
			return err
		}
		if len(genres) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "genre_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"genre_name"}),
		}).Create(&genres).Error
	})
}
