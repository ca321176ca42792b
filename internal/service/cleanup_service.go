package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/user/reelpick/internal/repository"
)

// CleanupService 定期清理过期的用量台账
type CleanupService struct {
	usage         repository.UsageStore
	retentionDays int
	interval      time.Duration
	now           func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewCleanupService retentionDays <= 0 时不清理
func NewCleanupService(usage repository.UsageStore, retentionDays int) *CleanupService {
	return &CleanupService{
		usage:         usage,
		retentionDays: retentionDays,
		interval:      24 * time.Hour,
		now:           time.Now,
		stop:          make(chan struct{}),
	}
}

// Start 启动时先运行一次，之后每天一次
func (s *CleanupService) Start() {
	if s.retentionDays <= 0 || s.usage == nil {
		log.Println("[CleanupService] 未配置保留天数或用量存储，跳过清理")
		return
	}
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		s.RunOnce(context.Background())
		for {
			select {
			case <-ticker.C:
				s.RunOnce(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop 停止定时任务
func (s *CleanupService) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// RunOnce 删除保留期之前的计数，返回删除条数
func (s *CleanupService) RunOnce(ctx context.Context) int64 {
	if s.usage == nil {
		return 0
	}
	cutoff := s.now().AddDate(0, 0, -s.retentionDays).Format(ledgerDateLayout)
	affected, err := s.usage.DeleteBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[CleanupService] 清理用量台账失败: %v", err)
		return 0
	}
	if affected > 0 {
		log.Printf("[CleanupService] 已清理 %d 条 %s 之前的用量记录", affected, cutoff)
	}
	return affected
}
