package service

import (
	"context"
	"net/url"

	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/utils"
)

// CallRecorder 记录一次外部调用（用量台账）
type CallRecorder interface {
	RecordCall(ctx context.Context, provider string)
}

// LanguageModel 文本生成
type LanguageModel interface {
	Generate(ctx context.Context, p utils.Prompt) (*utils.Completion, error)
}

// KeywordSearcher 关键词实时搜索，无结果时返回 0
type KeywordSearcher interface {
	SearchKeyword(ctx context.Context, query string) (int, error)
}

// GenreLister 拉取提供方的类型列表
type GenreLister interface {
	GenreList(ctx context.Context) ([]model.Genre, error)
}

// MovieDiscoverer 按条件分页发现电影
type MovieDiscoverer interface {
	DiscoverMovies(ctx context.Context, query url.Values, page int) ([]model.Candidate, error)
}

// MovieLookup 富化所需的元数据接口
type MovieLookup interface {
	SearchMovie(ctx context.Context, title string) ([]TMDBSearchResult, error)
	MovieDetails(ctx context.Context, id int) (*TMDBMovieDetails, error)
	MovieCredits(ctx context.Context, id int) (*TMDBCredits, error)
	WatchProviders(ctx context.Context, id int) ([]string, error)
}

// RatingsLookup 评分提供方
type RatingsLookup interface {
	Ratings(ctx context.Context, imdbID string) (*Ratings, error)
}

// ImageFetcher 下载海报
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}
