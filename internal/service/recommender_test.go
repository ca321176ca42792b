package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/repository"
)

func newTestRecommender(t *testing.T, tmdb *fakeTMDB, llm *fakeLLM, prompts *recordingPrompts) *Recommender {
	t.Helper()
	store := newTestStore(t)
	store.Prompts = prompts
	return newStoreRecommender(store, tmdb, llm)
}

func newStoreRecommender(store *repository.Store, tmdb *fakeTMDB, llm *fakeLLM) *Recommender {
	genres := NewGenreCatalog(store.Genres, tmdb)
	keywords := NewKeywordResolver(store.Keywords, tmdb, DefaultKeywordThreshold)
	enricher := NewEnricher(tmdb, &fakeRatings{}, nil, store.Movies, EnricherOptions{Workers: 4, MaxCandidates: 30, StreamingTTL: 24 * time.Hour})
	extractor := NewFilterExtractor(llm, genres, keywords, time.Second)
	chain := NewFallbackChain(NewDiscoverer(tmdb), store.Movies, enricher, genres, llm, time.Second)
	composer := NewComposer(llm, store.Prompts, time.Second)
	return NewRecommender(extractor, chain, enricher, composer, RecommenderOptions{})
}

func TestRecommendDiscoveryPath(t *testing.T) {
	tmdb := newFakeTMDB(inception)
	tmdb.pages = [][]model.Candidate{{{Title: "Inception", Year: "2010"}, {Title: "Nowhere Film"}}}
	llm := &fakeLLM{responses: []string{`{"with_genres": "28"}`, "Watch Inception tonight."}, tokens: 150}
	prompts := &recordingPrompts{}
	r := newTestRecommender(t, tmdb, llm, prompts)

	rec, err := r.Recommend(context.Background(), "  mind bending action  ")

	require.NoError(t, err)
	assert.NotEmpty(t, rec.RequestID)
	assert.Equal(t, "mind bending action", rec.Prompt)
	assert.Equal(t, StageDiscovery, rec.Stage)
	assert.False(t, rec.UsedFallback)
	assert.Equal(t, "Watch Inception tonight.", rec.Narrative)
	assert.Equal(t, 150, rec.TokenUsage)
	require.Len(t, rec.Movies, 1)
	assert.Equal(t, "Inception", rec.Movies[0].Title)
	assert.Equal(t, 3, tmdb.calls("discover"))

	entries := prompts.all()
	require.Len(t, entries, 1)
	assert.Equal(t, rec.RequestID, entries[0].ID)
	assert.Equal(t, []string{"28"}, entries[0].Filters.GenreIDs)
}

func TestRecommendPlatformsFromPrompt(t *testing.T) {
	hulu := fakeMovie{id: 7, imdbID: "tt0000007", title: "Palm Springs", date: "2020-07-10", streaming: []string{"Hulu"}}
	tmdb := newFakeTMDB(inception, hulu)
	tmdb.pages = [][]model.Candidate{{{Title: "Inception"}, {Title: "Palm Springs"}}}
	llm := &fakeLLM{responses: []string{`{"with_genres": "35"}`, "Palm Springs it is."}}
	r := newTestRecommender(t, tmdb, llm, &recordingPrompts{})

	rec, err := r.Recommend(context.Background(), "time loop comedy on hulu")

	require.NoError(t, err)
	assert.Equal(t, []string{"Hulu"}, rec.Platforms)
	require.Len(t, rec.Movies, 1)
	assert.Equal(t, "Palm Springs", rec.Movies[0].Title)
}

func TestRecommendKeepsStubsWhenNothingFound(t *testing.T) {
	tmdb := newFakeTMDB()
	tmdb.pages = [][]model.Candidate{{{Title: "Ghost One"}, {Title: "Ghost Two"}}}
	llm := &fakeLLM{responses: []string{`{"with_keywords": "ghosts"}`, "Nothing solid, but try these."}}
	tmdb.keywords["ghosts"] = 162846
	r := newTestRecommender(t, tmdb, llm, &recordingPrompts{})

	rec, err := r.Recommend(context.Background(), "ghost stories")

	require.NoError(t, err)
	require.Len(t, rec.Movies, 2)
	assert.True(t, rec.Movies[0].NotFound)
}

func TestNewRecommenderDefaults(t *testing.T) {
	r := NewRecommender(nil, nil, nil, nil, RecommenderOptions{})
	assert.Equal(t, DefaultTopN, r.opts.TopN)
	assert.Equal(t, DefaultStreamingFilterMin, r.opts.StreamingFilterMin)

	r = NewRecommender(nil, nil, nil, nil, RecommenderOptions{TopN: 3, StreamingFilterMin: 8})
	assert.Equal(t, 3, r.opts.TopN)
	assert.Equal(t, 8, r.opts.StreamingFilterMin)
}

func TestRecommendWithoutStore(t *testing.T) {
	tmdb := newFakeTMDB(inception)
	tmdb.pages = [][]model.Candidate{{{Title: "Inception", Year: "2010"}}}
	llm := &fakeLLM{responses: []string{`{"with_genres": "28"}`, "Inception, no question."}}
	r := newStoreRecommender(&repository.Store{}, tmdb, llm)

	rec, err := r.Recommend(context.Background(), "big budget sci-fi action")

	require.NoError(t, err)
	assert.Equal(t, StageDiscovery, rec.Stage)
	assert.Equal(t, "Inception, no question.", rec.Narrative)
	require.Len(t, rec.Movies, 1)
	assert.Equal(t, "tt1375666", rec.Movies[0].Key)
}

func TestRecommendNarrationFailure(t *testing.T) {
	tmdb := newFakeTMDB(inception)
	tmdb.pages = [][]model.Candidate{{{Title: "Inception"}}}
	llm := &fakeLLM{responses: []string{`{"with_genres": "28"}`}}
	prompts := &recordingPrompts{}
	r := newTestRecommender(t, tmdb, llm, prompts)

	rec, err := r.Recommend(context.Background(), "action")

	assert.Nil(t, rec)
	assert.True(t, errors.Is(err, ErrNarration))
	entries := prompts.all()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].Error)
}

func TestRecommendEmptyPrompt(t *testing.T) {
	r := newTestRecommender(t, newFakeTMDB(), &fakeLLM{}, &recordingPrompts{})
	_, err := r.Recommend(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestDropNotFound(t *testing.T) {
	found := &model.Movie{Title: "Heat"}
	stub := &model.Movie{Title: "Nope", NotFound: true}

	assert.Equal(t, []*model.Movie{found}, dropNotFound([]*model.Movie{stub, found}))
	assert.Equal(t, []*model.Movie{stub}, dropNotFound([]*model.Movie{stub}))
}
