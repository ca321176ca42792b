package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/repository"
	"github.com/user/reelpick/internal/utils"
)

var errProviderDown = errors.New("provider unavailable")

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	store, err := repository.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

// fakeLLM 按顺序返回预设结果，记录收到的提示
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	tokens    int
	prompts   []utils.Prompt
}

func (f *fakeLLM) Generate(ctx context.Context, p utils.Prompt) (*utils.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, utils.ErrEmptyCompletion
	}
	text := f.responses[0]
	f.responses = f.responses[1:]
	return &utils.Completion{Text: text, TotalTokens: f.tokens}, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// fakeMovie 一部假 TMDB 电影
type fakeMovie struct {
	id        int
	imdbID    string
	title     string
	date      string
	genres    []string
	director  string
	cast      []string
	streaming []string
	poster    string
}

// fakeTMDB 内存版 TMDB，统计各接口调用次数
type fakeTMDB struct {
	mu       sync.Mutex
	movies   []fakeMovie
	pages    [][]model.Candidate
	failPage int
	// keywordMisses 带关键词条件的查询一律无结果
	keywordMisses bool
	keywords      map[string]int
	genres   []model.Genre

	searchErr    error
	providersErr error
	keywordErr   error

	counts  map[string]int
	queries []url.Values
}

func newFakeTMDB(movies ...fakeMovie) *fakeTMDB {
	return &fakeTMDB{movies: movies, keywords: map[string]int{}, counts: map[string]int{}}
}

func (f *fakeTMDB) count(name string) {
	f.mu.Lock()
	f.counts[name]++
	f.mu.Unlock()
}

func (f *fakeTMDB) calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}

func (f *fakeTMDB) find(id int) (fakeMovie, bool) {
	for _, m := range f.movies {
		if m.id == id {
			return m, true
		}
	}
	return fakeMovie{}, false
}

func (f *fakeTMDB) SearchMovie(ctx context.Context, title string) ([]TMDBSearchResult, error) {
	f.count("search")
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []TMDBSearchResult
	for _, m := range f.movies {
		if strings.EqualFold(m.title, strings.TrimSpace(title)) {
			out = append(out, TMDBSearchResult{ID: m.id, Title: m.title, ReleaseDate: m.date})
		}
	}
	return out, nil
}

func (f *fakeTMDB) MovieDetails(ctx context.Context, id int) (*TMDBMovieDetails, error) {
	f.count("details")
	m, ok := f.find(id)
	if !ok {
		return nil, &utils.StatusError{Code: 404}
	}
	d := &TMDBMovieDetails{ID: m.id, IMDbID: m.imdbID, Title: m.title, ReleaseDate: m.date, Runtime: 120, Overview: "plot of " + m.title, PosterPath: m.poster}
	for i, g := range m.genres {
		d.Genres = append(d.Genres, struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		}{ID: i + 1, Name: g})
	}
	return d, nil
}

func (f *fakeTMDB) MovieCredits(ctx context.Context, id int) (*TMDBCredits, error) {
	f.count("credits")
	m, _ := f.find(id)
	cr := &TMDBCredits{}
	for _, name := range m.cast {
		cr.Cast = append(cr.Cast, struct {
			Name string `json:"name"`
		}{Name: name})
	}
	if m.director != "" {
		cr.Crew = append(cr.Crew, struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		}{Name: m.director, Job: "Director"})
	}
	return cr, nil
}

func (f *fakeTMDB) WatchProviders(ctx context.Context, id int) ([]string, error) {
	f.count("providers")
	if f.providersErr != nil {
		return nil, f.providersErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, _ := f.find(id)
	return append([]string(nil), m.streaming...), nil
}

func (f *fakeTMDB) setStreaming(id int, streaming []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.movies {
		if f.movies[i].id == id {
			f.movies[i].streaming = streaming
		}
	}
}

func (f *fakeTMDB) DiscoverMovies(ctx context.Context, query url.Values, page int) ([]model.Candidate, error) {
	f.count("discover")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.failPage > 0 && page >= f.failPage {
		return nil, errProviderDown
	}
	if f.keywordMisses && query.Get(model.KeyKeywords) != "" {
		return nil, nil
	}
	if page-1 < len(f.pages) {
		return f.pages[page-1], nil
	}
	return nil, nil
}

func (f *fakeTMDB) SearchKeyword(ctx context.Context, query string) (int, error) {
	f.count("keyword")
	if f.keywordErr != nil {
		return 0, f.keywordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keywords[query], nil
}

func (f *fakeTMDB) GenreList(ctx context.Context) ([]model.Genre, error) {
	f.count("genres")
	return f.genres, nil
}

// fakeRatings 按 IMDb ID 返回评分
type fakeRatings struct {
	mu      sync.Mutex
	ratings map[string]*Ratings
	calls   int
}

func (f *fakeRatings) Ratings(ctx context.Context, imdbID string) (*Ratings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	r, ok := f.ratings[imdbID]
	if !ok {
		return nil, errProviderDown
	}
	return r, nil
}

func (f *fakeRatings) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeImages struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeImages) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return []byte("jpeg:" + imageURL), nil
}

// failingMovieStore 所有操作都失败
type failingMovieStore struct{}

func (failingMovieStore) FindByKey(ctx context.Context, key string) (*model.Movie, error) {
	return nil, errors.New("store down")
}

func (failingMovieStore) Upsert(ctx context.Context, movie *model.Movie) error {
	return errors.New("store down")
}

func (failingMovieStore) All(ctx context.Context) ([]model.Movie, error) {
	return nil, errors.New("store down")
}

func (failingMovieStore) Acclaimed(ctx context.Context, minIMDb float64, minRT, limit int) ([]model.Movie, error) {
	return nil, errors.New("store down")
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
