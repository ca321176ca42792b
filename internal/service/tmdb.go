package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/utils"
)

const (
	tmdbImageBase     = "https://image.tmdb.org/t/p/w500"
	tmdbLanguage      = "en-US"
	streamingRegionUS = "US"
)

// TMDBClient TMDB v3 接口，支持 Bearer Token 或 api_key 两种凭证
type TMDBClient struct {
	http     *utils.HTTPClient
	images   *utils.HTTPClient
	baseURL  string
	token    string
	apiKey   string
	recorder CallRecorder
}

// TMDBClientOptions 客户端参数
type TMDBClientOptions struct {
	BaseURL  string
	Token    string
	APIKey   string
	HTTP     *utils.HTTPClient
	Images   *utils.HTTPClient
	Recorder CallRecorder
}

func NewTMDBClient(opts TMDBClientOptions) *TMDBClient {
	if opts.HTTP == nil {
		opts.HTTP = utils.NewHTTPClient(utils.HTTPClientOptions{Name: model.ProviderTMDB})
	}
	if opts.Images == nil {
		opts.Images = utils.NewHTTPClient(utils.HTTPClientOptions{Name: "tmdb-images"})
	}
	return &TMDBClient{
		http:     opts.HTTP,
		images:   opts.Images,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.Token,
		apiKey:   opts.APIKey,
		recorder: opts.Recorder,
	}
}

// get 每次请求都记一笔 tmdb 用量
func (c *TMDBClient) get(ctx context.Context, path string, params url.Values, target interface{}) error {
	if c.token == "" && c.apiKey == "" {
		return fmt.Errorf("missing TMDB credentials")
	}
	if params == nil {
		params = url.Values{}
	}
	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	} else {
		params.Set("api_key", c.apiKey)
	}

	if c.recorder != nil {
		c.recorder.RecordCall(ctx, model.ProviderTMDB)
	}
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/") + "?" + params.Encode()
	if err := c.http.GetJSON(ctx, endpoint, header, target); err != nil {
		return fmt.Errorf("tmdb %s: %w", path, err)
	}
	return nil
}

type TMDBSearchResult struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

// Year 上映年份，未知时为空
func (r TMDBSearchResult) Year() string {
	return yearOf(r.ReleaseDate)
}

type tmdbPagedResponse struct {
	Page    int                `json:"page"`
	Results []TMDBSearchResult `json:"results"`
}

// SearchMovie 按标题搜索电影
func (c *TMDBClient) SearchMovie(ctx context.Context, title string) ([]TMDBSearchResult, error) {
	params := url.Values{}
	params.Set("query", title)
	params.Set("include_adult", "false")
	params.Set("language", tmdbLanguage)
	params.Set("page", "1")

	var resp tmdbPagedResponse
	if err := c.get(ctx, "search/movie", params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// DiscoverMovies 发现接口单页
func (c *TMDBClient) DiscoverMovies(ctx context.Context, query url.Values, page int) ([]model.Candidate, error) {
	params := url.Values{}
	for k, vs := range query {
		params[k] = append([]string(nil), vs...)
	}
	params.Set("language", tmdbLanguage)
	params.Set("include_adult", "false")
	params.Set("sort_by", "popularity.desc")
	params.Set("page", strconv.Itoa(page))

	var resp tmdbPagedResponse
	if err := c.get(ctx, "discover/movie", params, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Title == "" {
			continue
		}
		out = append(out, model.Candidate{Title: r.Title, Year: r.Year()})
	}
	return out, nil
}

type TMDBMovieDetails struct {
	ID          int    `json:"id"`
	IMDbID      string `json:"imdb_id"`
	Title       string `json:"title"`
	Overview    string `json:"overview"`
	ReleaseDate string `json:"release_date"`
	Runtime     int    `json:"runtime"`
	PosterPath  string `json:"poster_path"`
	Genres      []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// PosterURL 由 poster_path 拼出完整地址
func (d *TMDBMovieDetails) PosterURL() *string {
	if d.PosterPath == "" {
		return nil
	}
	u := tmdbImageBase + d.PosterPath
	return &u
}

func (c *TMDBClient) MovieDetails(ctx context.Context, id int) (*TMDBMovieDetails, error) {
	params := url.Values{}
	params.Set("language", tmdbLanguage)

	var details TMDBMovieDetails
	if err := c.get(ctx, fmt.Sprintf("movie/%d", id), params, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

type TMDBCredits struct {
	Cast []struct {
		Name string `json:"name"`
	} `json:"cast"`
	Crew []struct {
		Name string `json:"name"`
		Job  string `json:"job"`
	} `json:"crew"`
}

// Director 第一位导演，没有时为 Unknown
func (cr *TMDBCredits) Director() string {
	for _, c := range cr.Crew {
		if c.Job == "Director" && c.Name != "" {
			return c.Name
		}
	}
	return model.UnknownDirector
}

// TopCast 前 n 位演员
func (cr *TMDBCredits) TopCast(n int) []string {
	out := make([]string, 0, n)
	for _, c := range cr.Cast {
		if len(out) == n {
			break
		}
		out = append(out, c.Name)
	}
	return out
}

func (c *TMDBClient) MovieCredits(ctx context.Context, id int) (*TMDBCredits, error) {
	var credits TMDBCredits
	if err := c.get(ctx, fmt.Sprintf("movie/%d/credits", id), nil, &credits); err != nil {
		return nil, err
	}
	return &credits, nil
}

type tmdbWatchProviders struct {
	Results map[string]struct {
		Flatrate []struct {
			ProviderName string `json:"provider_name"`
		} `json:"flatrate"`
	} `json:"results"`
}

// WatchProviders 美区订阅制（flatrate）平台名
func (c *TMDBClient) WatchProviders(ctx context.Context, id int) ([]string, error) {
	var resp tmdbWatchProviders
	if err := c.get(ctx, fmt.Sprintf("movie/%d/watch/providers", id), nil, &resp); err != nil {
		return nil, err
	}
	region := resp.Results[streamingRegionUS]
	names := make([]string, 0, len(region.Flatrate))
	for _, p := range region.Flatrate {
		names = append(names, p.ProviderName)
	}
	return names, nil
}

// SearchKeyword 取关键词搜索的第一条结果，无结果返回 0
func (c *TMDBClient) SearchKeyword(ctx context.Context, query string) (int, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp struct {
		Results []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"results"`
	}
	if err := c.get(ctx, "search/keyword", params, &resp); err != nil {
		return 0, err
	}
	if len(resp.Results) == 0 {
		return 0, nil
	}
	return resp.Results[0].ID, nil
}

// GenreList 电影类型表
func (c *TMDBClient) GenreList(ctx context.Context) ([]model.Genre, error) {
	params := url.Values{}
	params.Set("language", "en")

	var resp struct {
		Genres []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"genres"`
	}
	if err := c.get(ctx, "genre/movie/list", params, &resp); err != nil {
		return nil, err
	}
	genres := make([]model.Genre, 0, len(resp.Genres))
	for _, g := range resp.Genres {
		genres = append(genres, model.Genre{ID: strconv.Itoa(g.ID), Name: g.Name})
	}
	return genres, nil
}

// FetchImage 下载图片，按 TMDB 调用计数
func (c *TMDBClient) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if c.recorder != nil {
		c.recorder.RecordCall(ctx, model.ProviderTMDB)
	}
	return c.images.GetBytes(ctx, imageURL, nil)
}

func yearOf(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}
