package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/repository"
	"github.com/user/reelpick/internal/utils"
)

var inception = fakeMovie{
	id:        27205,
	imdbID:    "tt1375666",
	title:     "Inception",
	date:      "2010-07-15",
	genres:    []string{"Action", "Science Fiction"},
	director:  "Christopher Nolan",
	cast:      []string{"Leonardo DiCaprio", "Joseph Gordon-Levitt", "Elliot Page", "Tom Hardy", "Ken Watanabe", "Cillian Murphy"},
	streaming: []string{"Netflix"},
	poster:    "/inception.jpg",
}

func newTestEnricher(t *testing.T, tmdb *fakeTMDB, ratings *fakeRatings, movies repository.MovieStore, opts EnricherOptions) *Enricher {
	t.Helper()
	if opts.Workers == 0 {
		opts.Workers = 4
	}
	return NewEnricher(tmdb, ratings, &fakeImages{}, movies, opts)
}

func TestEnrichMissFetchesRatingsAndPersists(t *testing.T) {
	store := newTestStore(t)
	tmdb := newFakeTMDB(inception)
	ratings := &fakeRatings{ratings: map[string]*Ratings{
		"tt1375666": {RottenTomatoes: intPtr(87), IMDbRating: floatPtr(8.8), Metascore: ParseMetascore("N/A")},
	}}
	e := newTestEnricher(t, tmdb, ratings, store.Movies, EnricherOptions{StreamingTTL: 24 * time.Hour})

	m := e.Enrich(context.Background(), "Inception")

	require.False(t, m.NotFound)
	assert.Equal(t, "tt1375666", m.Key)
	assert.Equal(t, "2010", m.Year)
	assert.Equal(t, "Christopher Nolan", m.Director)
	assert.Len(t, m.Cast, 5)
	assert.Equal(t, []string{"Netflix"}, m.StreamingServices)
	assert.Equal(t, 87, *m.RottenTomatoes)
	assert.Nil(t, m.Metascore)
	require.NotNil(t, m.PosterURL)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/inception.jpg", *m.PosterURL)

	stored, err := store.Movies.FindByKey(context.Background(), "tt1375666")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Inception", stored.Title)
}

func TestEnrichHitSkipsRatings(t *testing.T) {
	store := newTestStore(t)
	tmdb := newFakeTMDB(inception)
	ratings := &fakeRatings{ratings: map[string]*Ratings{"tt1375666": {RottenTomatoes: intPtr(87)}}}
	e := newTestEnricher(t, tmdb, ratings, store.Movies, EnricherOptions{StreamingTTL: 24 * time.Hour})
	ctx := context.Background()

	first := e.Enrich(ctx, "Inception")
	second := e.Enrich(ctx, "Inception")

	assert.Equal(t, 1, ratings.callCount())
	assert.Equal(t, 1, tmdb.calls("search"), "title search is cached")
	assert.Equal(t, 2, tmdb.calls("details"))
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, 87, *second.RottenTomatoes)
}

func TestEnrichRefreshesStaleStreaming(t *testing.T) {
	store := newTestStore(t)
	tmdb := newFakeTMDB(inception)
	ratings := &fakeRatings{ratings: map[string]*Ratings{"tt1375666": {}}}
	e := newTestEnricher(t, tmdb, ratings, store.Movies, EnricherOptions{StreamingTTL: 24 * time.Hour})
	ctx := context.Background()

	e.Enrich(ctx, "Inception")
	tmdb.setStreaming(inception.id, []string{"Max"})

	t.Run("fresh record keeps stored streaming", func(t *testing.T) {
		m := e.Enrich(ctx, "Inception")
		assert.Equal(t, []string{"Netflix"}, m.StreamingServices)
	})

	t.Run("stale record is refreshed and saved", func(t *testing.T) {
		e.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
		m := e.Enrich(ctx, "Inception")
		assert.Equal(t, []string{"Max"}, m.StreamingServices)

		stored, err := store.Movies.FindByKey(ctx, "tt1375666")
		require.NoError(t, err)
		assert.Equal(t, []string{"Max"}, stored.StreamingServices)
	})

	assert.Equal(t, 1, ratings.callCount())
}

func TestEnrichNotFoundAndProviderFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown title yields stub", func(t *testing.T) {
		e := newTestEnricher(t, newFakeTMDB(inception), &fakeRatings{}, newTestStore(t).Movies, EnricherOptions{})
		m := e.Enrich(ctx, "movie like the matrix")
		assert.True(t, m.NotFound)
		assert.Equal(t, "movie like the matrix", m.Title)
	})

	t.Run("search failure yields stub", func(t *testing.T) {
		tmdb := newFakeTMDB(inception)
		tmdb.searchErr = errProviderDown
		e := newTestEnricher(t, tmdb, &fakeRatings{}, newTestStore(t).Movies, EnricherOptions{})
		assert.True(t, e.Enrich(ctx, "Inception").NotFound)
	})

	t.Run("ratings and store failures degrade the record", func(t *testing.T) {
		tmdb := newFakeTMDB(inception)
		tmdb.providersErr = errProviderDown
		e := newTestEnricher(t, tmdb, &fakeRatings{}, failingMovieStore{}, EnricherOptions{})
		m := e.Enrich(ctx, "Inception")
		assert.False(t, m.NotFound)
		assert.Nil(t, m.RottenTomatoes)
		assert.Empty(t, m.StreamingServices)
	})
}

func TestEnrichPrefersMatchingYear(t *testing.T) {
	remake := fakeMovie{id: 1, imdbID: "tt0000001", title: "Dune", date: "2021-10-22"}
	original := fakeMovie{id: 2, imdbID: "tt0087182", title: "Dune", date: "1984-12-14"}
	e := newTestEnricher(t, newFakeTMDB(remake, original), &fakeRatings{}, newTestStore(t).Movies, EnricherOptions{})

	m := e.EnrichCandidate(context.Background(), model.Candidate{Title: "Dune", Year: "1984"})

	assert.Equal(t, "tt0087182", m.IMDbID)
}

func TestEnrichSavesPosterOnce(t *testing.T) {
	dir := t.TempDir()
	images := &fakeImages{}
	e := NewEnricher(newFakeTMDB(inception), &fakeRatings{}, images, newTestStore(t).Movies, EnricherOptions{PosterDir: dir})
	ctx := context.Background()

	e.Enrich(ctx, "Inception")
	m := e.Enrich(ctx, "Inception")
	e.savePoster(ctx, m)

	data, err := os.ReadFile(filepath.Join(dir, "27205.jpg"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "inception.jpg")
	assert.Equal(t, 1, images.calls)
}

func TestEnrichAllPreservesOrderAndCaps(t *testing.T) {
	var movies []fakeMovie
	var candidates []model.Candidate
	for i := 1; i <= 40; i++ {
		title := fmt.Sprintf("Movie %02d", i)
		movies = append(movies, fakeMovie{id: i, imdbID: fmt.Sprintf("tt%07d", i), title: title, date: "2000-01-01"})
		candidates = append(candidates, model.Candidate{Title: title})
		if i == 3 {
			candidates = append(candidates, model.Candidate{Title: "movie 03"})
		}
	}
	e := newTestEnricher(t, newFakeTMDB(movies...), &fakeRatings{}, newTestStore(t).Movies, EnricherOptions{Workers: 6, MaxCandidates: 30})

	got := e.EnrichAll(context.Background(), candidates)

	require.Len(t, got, 30)
	for i, m := range got {
		assert.Equal(t, fmt.Sprintf("Movie %02d", i+1), m.Title)
	}
}

func TestDedupCandidates(t *testing.T) {
	got := DedupCandidates([]model.Candidate{
		{Title: "Heat"}, {Title: " heat "}, {Title: ""}, {Title: "Ronin"}, {Title: "Thief"},
	}, 2)
	assert.Equal(t, []model.Candidate{{Title: "Heat"}, {Title: "Ronin"}}, got)
}

// 通过真实 HTTP 客户端验证用量台账：第二次富化命中缓存，不再调用 OMDb
func TestEnrichTwiceLedgerCounts(t *testing.T) {
	tmdbSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/movie":
			_, _ = w.Write([]byte(`{"results":[{"id":27205,"title":"Inception","release_date":"2010-07-15"}]}`))
		case "/movie/27205":
			_, _ = w.Write([]byte(`{"id":27205,"imdb_id":"tt1375666","title":"Inception","release_date":"2010-07-15","runtime":148,"genres":[{"id":28,"name":"Action"}]}`))
		case "/movie/27205/credits":
			_, _ = w.Write([]byte(`{"cast":[{"name":"Leonardo DiCaprio"}],"crew":[{"name":"Christopher Nolan","job":"Director"}]}`))
		case "/movie/27205/watch/providers":
			_, _ = w.Write([]byte(`{"results":{"US":{"flatrate":[{"provider_name":"Netflix"}]}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer tmdbSrv.Close()
	omdbSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Response":"True","imdbRating":"8.8","Metascore":"N/A","Ratings":[{"Source":"Rotten Tomatoes","Value":"87%"}]}`))
	}))
	defer omdbSrv.Close()

	store := newTestStore(t)
	ledger := NewUsageLedger(store.Usage)
	httpClient := utils.NewHTTPClient(utils.HTTPClientOptions{Name: "test"})
	tmdb := NewTMDBClient(TMDBClientOptions{BaseURL: tmdbSrv.URL, Token: "tok", HTTP: httpClient, Recorder: ledger})
	omdb := NewOMDBClient(omdbSrv.URL, "key", httpClient, ledger)
	e := NewEnricher(tmdb, omdb, tmdb, store.Movies, EnricherOptions{Workers: 1, StreamingTTL: 24 * time.Hour})
	ctx := context.Background()

	first := e.Enrich(ctx, "Inception")
	require.False(t, first.NotFound)
	require.Nil(t, first.Metascore)

	counts := func() map[string]int {
		entries, err := ledger.Summary(ctx, 1)
		require.NoError(t, err)
		out := map[string]int{}
		for _, entry := range entries {
			out[entry.Provider] = entry.Calls
		}
		return out
	}
	afterFirst := counts()
	assert.Equal(t, 1, afterFirst[model.ProviderOMDB])
	assert.Equal(t, 4, afterFirst[model.ProviderTMDB])

	e.Enrich(ctx, "Inception")
	afterSecond := counts()
	assert.Equal(t, 1, afterSecond[model.ProviderOMDB])
	assert.Equal(t, 7, afterSecond[model.ProviderTMDB])
}

func TestEnrichDropsStaleSearchResult(t *testing.T) {
	tmdb := newFakeTMDB(inception)
	e := newTestEnricher(t, tmdb, &fakeRatings{}, nil, EnricherOptions{})
	ctx := context.Background()

	require.False(t, e.Enrich(ctx, "Inception").NotFound)

	// TMDB 删除了该条目，详情 404
	tmdb.mu.Lock()
	tmdb.movies = nil
	tmdb.mu.Unlock()

	assert.True(t, e.Enrich(ctx, "Inception").NotFound)
	assert.Equal(t, 1, tmdb.calls("search"), "cached id is reused once")

	assert.True(t, e.Enrich(ctx, "Inception").NotFound)
	assert.Equal(t, 2, tmdb.calls("search"), "404 evicts the cached id")
}
