package model

import (
	"strings"
	"time"
	"unicode"
)

// 未知导演占位
const UnknownDirector = "Unknown"

// 无 IMDb ID 时使用的临时主键前缀
const provisionalPrefix = "title:"

// Movie 电影富化记录（TMDB 元数据 + OMDb 评分 + 流媒体）
type Movie struct {
	ID                uint      `json:"-" gorm:"primaryKey"`
	Key               string    `json:"key" gorm:"column:cache_key;uniqueIndex;not null"`
	IMDbID            string    `json:"imdb_id" gorm:"column:imdb_id;index"`
	TMDBID            int       `json:"tmdb_id" gorm:"column:tmdb_id"`
	Title             string    `json:"title" gorm:"index"`
	Year              string    `json:"year" gorm:"index"`
	Genres            []string  `json:"genres" gorm:"serializer:json"`
	Runtime           *int      `json:"runtime"`
	Director          string    `json:"director"`
	Cast              []string  `json:"main_cast" gorm:"column:main_cast;serializer:json"`
	Plot              string    `json:"plot"`
	StreamingServices []string  `json:"streaming_services" gorm:"serializer:json"`
	RottenTomatoes    *int      `json:"rotten_tomatoes"`
	IMDbRating        *float64  `json:"imdb_rating" gorm:"column:imdb_rating"`
	Metascore         *int      `json:"metascore"`
	PosterURL         *string   `json:"poster_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// NotFound 元数据提供方无结果时的占位记录，不入库
	NotFound bool `json:"-" gorm:"-"`
}

// MovieKey 计算存储主键：优先 IMDb ID，否则使用清洗后的标题
func MovieKey(imdbID, title string) string {
	if id := strings.TrimSpace(imdbID); strings.HasPrefix(id, "tt") {
		return id
	}
	return provisionalPrefix + SanitizeTitle(title)
}

// AssignKey 根据当前字段刷新主键
func (m *Movie) AssignKey() {
	m.Key = MovieKey(m.IMDbID, m.Title)
}

// Provisional 是否为临时主键（未解析到 IMDb ID）
func (m *Movie) Provisional() bool {
	return strings.HasPrefix(m.Key, provisionalPrefix)
}

// HasStreaming 是否有可用流媒体
func (m *Movie) HasStreaming() bool {
	return len(m.StreamingServices) > 0
}

// SanitizeTitle 把标题规整为可做主键/文件名的形式
func SanitizeTitle(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('_')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// Candidate 待富化的候选（仅标题与年份）
type Candidate struct {
	Title string `json:"title"`
	Year  string `json:"year,omitempty"`
}
