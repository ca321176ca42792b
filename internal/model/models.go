package model

import (
	"time"
)

// 外部数据提供方名称（用量台账按此计数）
const (
	ProviderTMDB = "tmdb"
	ProviderOMDB = "omdb"
)

// KeywordEntry TMDB 关键词缓存（只追加）
type KeywordEntry struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	Name      string    `json:"keyword_name" gorm:"column:keyword_name;uniqueIndex;not null"`
	KeywordID int       `json:"keyword_id" gorm:"column:keyword_id;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (KeywordEntry) TableName() string { return "tmdb_keywords" }

// Genre TMDB 类型
type Genre struct {
	ID   string `json:"genre_id" gorm:"column:genre_id;primaryKey"`
	Name string `json:"genre_name" gorm:"column:genre_name;not null"`
}

func (Genre) TableName() string { return "tmdb_genres" }

// UsageEntry 每日每个提供方的调用计数
type UsageEntry struct {
	Date     string `json:"date" gorm:"column:usage_date;primaryKey;size:10"`
	Provider string `json:"provider" gorm:"primaryKey;size:32"`
	Calls    int    `json:"calls" gorm:"not null;default:0"`
}

func (UsageEntry) TableName() string { return "api_usage" }

// PromptLog 一次推荐请求的审计记录（只写不读）
type PromptLog struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	PromptText     string    `json:"prompt_text"`
	Filters        FilterSet `json:"filters" gorm:"serializer:json"`
	Platforms      []string  `json:"platforms" gorm:"serializer:json"`
	TopMovies      []Movie   `json:"top_movies" gorm:"serializer:json"`
	FinalResponse  string    `json:"final_response"`
	UsedFallback   bool      `json:"used_fallback"`
	FallbackStage  string    `json:"fallback_stage"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	TokenUsage     int       `json:"token_usage"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

func (PromptLog) TableName() string { return "prompts" }
