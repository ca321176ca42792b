package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/utils"
)

func TestRatingCoercion(t *testing.T) {
	assert.Equal(t, 87, *ParseRottenTomatoes("87%"))
	assert.Nil(t, ParseRottenTomatoes("87"))
	assert.Nil(t, ParseRottenTomatoes("N/A"))
	assert.Nil(t, ParseRottenTomatoes("abc%"))

	assert.InDelta(t, 8.8, *ParseIMDbRating("8.8"), 1e-9)
	assert.Nil(t, ParseIMDbRating("N/A"))
	assert.Nil(t, ParseIMDbRating(""))
	assert.Nil(t, ParseIMDbRating("eight"))

	assert.Equal(t, 74, *ParseMetascore("74"))
	assert.Nil(t, ParseMetascore("N/A"))
	assert.Nil(t, ParseMetascore("7.4"))
	assert.Nil(t, ParseMetascore(""))
}

type countingRecorder struct {
	calls map[string]int
}

func (r *countingRecorder) RecordCall(ctx context.Context, provider string) {
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[provider]++
}

func TestOMDBClientRatings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("i") {
		case "tt1375666":
			_, _ = w.Write([]byte(`{"Response":"True","imdbRating":"8.8","Metascore":"N/A","Ratings":[{"Source":"Internet Movie Database","Value":"8.8/10"},{"Source":"Rotten Tomatoes","Value":"87%"}]}`))
		default:
			_, _ = w.Write([]byte(`{"Response":"False","Error":"Incorrect IMDb ID."}`))
		}
	}))
	defer srv.Close()

	rec := &countingRecorder{}
	client := NewOMDBClient(srv.URL+"/", "secret", utils.NewHTTPClient(utils.HTTPClientOptions{Name: "omdb-test"}), rec)
	ctx := context.Background()

	r, err := client.Ratings(ctx, "tt1375666")
	require.NoError(t, err)
	require.NotNil(t, r.RottenTomatoes)
	assert.Equal(t, 87, *r.RottenTomatoes)
	require.NotNil(t, r.IMDbRating)
	assert.InDelta(t, 8.8, *r.IMDbRating, 1e-9)
	assert.Nil(t, r.Metascore)

	_, err = client.Ratings(ctx, "tt0000000")
	assert.Error(t, err)
	assert.Equal(t, 2, rec.calls[model.ProviderOMDB])
}
