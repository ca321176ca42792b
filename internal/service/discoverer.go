package service

import (
	"context"
	"log"

	"github.com/user/reelpick/internal/model"
)

// PageCount 条件越具体，翻页越多
func PageCount(f model.FilterSet) int {
	switch {
	case f.HasKeywords() && f.HasGenres() && f.HasYear():
		return 5
	case f.HasKeywords() || f.HasGenres():
		return 3
	default:
		return 1
	}
}

// Discoverer 调用发现接口收集候选
type Discoverer struct {
	provider MovieDiscoverer
}

func NewDiscoverer(provider MovieDiscoverer) *Discoverer {
	return &Discoverer{provider: provider}
}

// Discover 某页失败即停止翻页，返回已收集的结果
func (d *Discoverer) Discover(ctx context.Context, f model.FilterSet) []model.Candidate {
	query := f.Query()
	pages := PageCount(f)

	var out []model.Candidate
	for page := 1; page <= pages; page++ {
		results, err := d.provider.DiscoverMovies(ctx, query, page)
		if err != nil {
			log.Printf("[Discover] 第 %d 页请求失败: %v", page, err)
			break
		}
		out = append(out, results...)
	}
	log.Printf("[Discover] %d 页, 共 %d 个候选", pages, len(out))
	return out
}
