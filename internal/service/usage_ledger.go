package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/repository"
)

const ledgerDateLayout = "2006-01-02"

// UsageLedger 每日外部调用计数，写入串行化
type UsageLedger struct {
	store repository.UsageStore
	mu    sync.Mutex
	now   func() time.Time
}

func NewUsageLedger(store repository.UsageStore) *UsageLedger {
	return &UsageLedger{store: store, now: time.Now}
}

// RecordCall 当日计数 +1，存储失败只记日志
func (l *UsageLedger) RecordCall(ctx context.Context, provider string) {
	if l == nil || l.store == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	date := l.now().Format(ledgerDateLayout)
	if err := l.store.Increment(context.WithoutCancel(ctx), date, provider); err != nil {
		log.Printf("[UsageLedger] 记录 %s 调用失败: %v", provider, err)
	}
}

// Summary 最近 days 天（含今天）的计数
func (l *UsageLedger) Summary(ctx context.Context, days int) ([]model.UsageEntry, error) {
	if l == nil || l.store == nil {
		return nil, nil
	}
	if days < 1 {
		days = 1
	}
	since := l.now().AddDate(0, 0, -(days - 1)).Format(ledgerDateLayout)
	return l.store.Since(ctx, since)
}
