package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/user/reelpick/internal/model"
	"gorm.io/gorm"
)

type PromptLogRepository struct {
	db *gorm.DB
}

func NewPromptLogRepository(db *gorm.DB) *PromptLogRepository {
	return &PromptLogRepository{db: db}
}

// Append 记录一次推荐请求
func (r *PromptLogRepository) Append(ctx context.Context, entry *model.PromptLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}
