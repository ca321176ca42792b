package service

import (
	"sort"

	"github.com/user/reelpick/internal/model"
)

// DefaultStreamingFilterMin 富化结果超过该数量才丢弃无流媒体的电影
const DefaultStreamingFilterMin = 5

// RankOptions 排序参数
type RankOptions struct {
	TopN               int
	Platforms          []string
	StreamingFilterMin int
}

// Rank 过滤后按 (烂番茄, IMDb, Metascore) 降序稳定排序，缺失值视为 -1
func Rank(movies []*model.Movie, opts RankOptions) []*model.Movie {
	ranked := make([]*model.Movie, 0, len(movies))
	for _, m := range movies {
		if m != nil {
			ranked = append(ranked, m)
		}
	}

	if len(ranked) > opts.StreamingFilterMin {
		streaming := ranked[:0:0]
		for _, m := range ranked {
			if m.HasStreaming() {
				streaming = append(streaming, m)
			}
		}
		ranked = streaming
	}

	if len(opts.Platforms) > 0 {
		available := ranked[:0:0]
		for _, m := range ranked {
			if onAnyPlatform(m, opts.Platforms) {
				available = append(available, m)
			}
		}
		ranked = available
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := scoreOf(ranked[i]), scoreOf(ranked[j])
		for k := range a {
			if a[k] != b[k] {
				return a[k] > b[k]
			}
		}
		return false
	})

	if opts.TopN > 0 && len(ranked) > opts.TopN {
		ranked = ranked[:opts.TopN]
	}
	return ranked
}

func scoreOf(m *model.Movie) [3]float64 {
	s := [3]float64{-1, -1, -1}
	if m.RottenTomatoes != nil {
		s[0] = float64(*m.RottenTomatoes)
	}
	if m.IMDbRating != nil {
		s[1] = *m.IMDbRating
	}
	if m.Metascore != nil {
		s[2] = float64(*m.Metascore)
	}
	return s
}

func onAnyPlatform(m *model.Movie, platforms []string) bool {
	for _, service := range m.StreamingServices {
		for _, p := range platforms {
			if platformMatches(service, p) {
				return true
			}
		}
	}
	return false
}
