package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/utils"
)

const rottenTomatoesSource = "Rotten Tomatoes"

// Ratings 已规整的评分，无法解析的字段为 nil
type Ratings struct {
	RottenTomatoes *int
	IMDbRating     *float64
	Metascore      *int
}

// OMDBClient 按 IMDb ID 查询评分
type OMDBClient struct {
	http     *utils.HTTPClient
	baseURL  string
	apiKey   string
	recorder CallRecorder
}

func NewOMDBClient(baseURL, apiKey string, http *utils.HTTPClient, recorder CallRecorder) *OMDBClient {
	if http == nil {
		http = utils.NewHTTPClient(utils.HTTPClientOptions{Name: model.ProviderOMDB})
	}
	return &OMDBClient{http: http, baseURL: baseURL, apiKey: apiKey, recorder: recorder}
}

type omdbResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	IMDbRating string `json:"imdbRating"`
	Metascore  string `json:"Metascore"`
	Ratings    []struct {
		Source string `json:"Source"`
		Value  string `json:"Value"`
	} `json:"Ratings"`
}

func (c *OMDBClient) Ratings(ctx context.Context, imdbID string) (*Ratings, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("missing OMDb api key")
	}
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("i", imdbID)

	if c.recorder != nil {
		c.recorder.RecordCall(ctx, model.ProviderOMDB)
	}
	var resp omdbResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("omdb %s: %w", imdbID, err)
	}
	if strings.EqualFold(resp.Response, "False") {
		return nil, fmt.Errorf("omdb %s: %s", imdbID, resp.Error)
	}

	var rt string
	for _, r := range resp.Ratings {
		if r.Source == rottenTomatoesSource {
			rt = r.Value
			break
		}
	}
	return &Ratings{
		RottenTomatoes: ParseRottenTomatoes(rt),
		IMDbRating:     ParseIMDbRating(resp.IMDbRating),
		Metascore:      ParseMetascore(resp.Metascore),
	}, nil
}

// ParseRottenTomatoes 只接受 "87%" 形式
func ParseRottenTomatoes(v string) *int {
	v = strings.TrimSpace(v)
	if !strings.HasSuffix(v, "%") {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSuffix(v, "%"))
	if err != nil || n < 0 || n > 100 {
		return nil
	}
	return &n
}

// ParseIMDbRating "N/A" 或非数字返回 nil
func ParseIMDbRating(v string) *float64 {
	v = strings.TrimSpace(v)
	if v == "" || v == "N/A" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 10 {
		return nil
	}
	return &f
}

// ParseMetascore 必须全部为数字
func ParseMetascore(v string) *int {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return nil
		}
	}
	n, err := strconv.Atoi(v)
	if err != nil || n > 100 {
		return nil
	}
	return &n
}
