package service

import (
	"context"
	"math/rand/v2"

	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/repository"
)

// 首页精选条件
const (
	landingMinIMDb = 6.5
	landingMinRT   = 70
	landingPool    = 20
	landingPicks   = 3
)

// LandingService 从缓存中挑选首页展示的电影
type LandingService struct {
	movies  repository.MovieStore
	shuffle func(n int, swap func(i, j int))
}

func NewLandingService(movies repository.MovieStore) *LandingService {
	return &LandingService{movies: movies, shuffle: rand.Shuffle}
}

// Picks 最新的高分电影中随机取 3 部
func (s *LandingService) Picks(ctx context.Context) ([]model.Movie, error) {
	if s.movies == nil {
		return nil, nil
	}
	pool, err := s.movies.Acclaimed(ctx, landingMinIMDb, landingMinRT, landingPool)
	if err != nil {
		return nil, err
	}
	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > landingPicks {
		pool = pool[:landingPicks]
	}
	return pool, nil
}
