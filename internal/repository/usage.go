package repository

import (
	"context"

	"github.com/user/reelpick/internal/model"
	"gorm.io/gorm"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Increment 当日计数 +1，不存在则先建行
func (r *UsageRepository) Increment(ctx context.Context, date, provider string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := model.UsageEntry{Date: date, Provider: provider}
		if err := tx.Where(&model.UsageEntry{Date: date, Provider: provider}).
			FirstOrCreate(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&model.UsageEntry{}).
			Where("usage_date = ? AND provider = ?", date, provider).
			UpdateColumn("calls", gorm.Expr("calls + ?", 1)).Error
	})
}

// Since 返回 date（含）之后的计数
func (r *UsageRepository) Since(ctx context.Context, date string) ([]model.UsageEntry, error) {
	var entries []model.UsageEntry
	err := r.db.WithContext(ctx).
		Where("usage_date >= ?", date).
		Order("usage_date DESC, provider ASC").
		Find(&entries).Error
	return entries, err
}

// DeleteBefore 清理 date 之前的计数
func (r *UsageRepository) DeleteBefore(ctx context.Context, date string) (int64, error) {
	result := r.db.WithContext(ctx).Where("usage_date < ?", date).Delete(&model.UsageEntry{})
	return result.RowsAffected, result.Error
}
