package repository

import (
	"context"
	"time"

	"github.com/user/reelpick/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KeywordRepository struct {
	db *gorm.DB
}

func NewKeywordRepository(db *gorm.DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

// All 读取全部关键词缓存
func (r *KeywordRepository) All(ctx context.Context) ([]model.KeywordEntry, error) {
	var entries []model.KeywordEntry
	err := r.db.WithContext(ctx).Order("id ASC").Find(&entries).Error
	return entries, err
}

// Insert 追加关键词，同名已存在时忽略
func (r *KeywordRepository) Insert(ctx context.Context, entry *model.KeywordEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "keyword_name"}},
		DoNothing: true,
	}).Create(entry).Error
}
