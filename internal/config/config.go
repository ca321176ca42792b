package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// 存储后端
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
)

// Config 应用配置
type Config struct {
	Env  string
	Port string

	// 存储
	StoreBackend string
	DatabaseURL  string
	SQLitePath   string
	CacheDir     string
	PosterDir    string

	// 外部服务凭证
	TMDBToken   string
	TMDBAPIKey  string
	TMDBBaseURL string
	OMDBAPIKey  string
	OMDBBaseURL string
	GeminiKey   string
	GeminiModel string

	// 管道参数
	EnrichWorkers      int
	MaxCandidates      int
	TopN               int
	StreamingFilterMin int
	StreamingTTL       time.Duration
	KeywordThreshold   float64

	// 超时与限速
	ProviderTimeout    time.Duration
	LLMTimeout         time.Duration
	ProviderRPS        float64
	UsageRetentionDays int
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "reelpick")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "5005"),

		StoreBackend: getEnv("STORE_BACKEND", BackendPostgres),
		DatabaseURL:  getEnv("DATABASE_URL", dbURL),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/reelpick.db"),
		CacheDir:     getEnv("CACHE_DIR", "./data/movie_cache"),
		PosterDir:    getEnv("POSTER_DIR", "./data/posters"),

		TMDBToken:   getEnv("TMDB_BEARER_TOKEN", ""),
		TMDBAPIKey:  getEnv("TMDB_API_KEY", ""),
		TMDBBaseURL: getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		OMDBAPIKey:  getEnv("OMDB_API_KEY", ""),
		OMDBBaseURL: getEnv("OMDB_BASE_URL", "https://www.omdbapi.com/"),
		GeminiKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		EnrichWorkers:      getEnvInt("ENRICH_WORKERS", 6),
		MaxCandidates:      getEnvInt("MAX_CANDIDATES", 30),
		TopN:               getEnvInt("TOP_N", 10),
		StreamingFilterMin: getEnvInt("STREAMING_FILTER_MIN", 5),
		StreamingTTL:       time.Duration(getEnvInt("STREAMING_TTL_HOURS", 24)) * time.Hour,
		KeywordThreshold:   getEnvFloat("KEYWORD_MATCH_THRESHOLD", 0.8),

		ProviderTimeout:    time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 10)) * time.Second,
		LLMTimeout:         time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		ProviderRPS:        getEnvFloat("PROVIDER_RPS", 20),
		UsageRetentionDays: getEnvInt("USAGE_RETENTION_DAYS", 90),
	}

	if cfg.TMDBToken == "" && cfg.TMDBAPIKey == "" {
		fmt.Println("【警告】未设置 TMDB_BEARER_TOKEN 或 TMDB_API_KEY，元数据查询将全部失败。")
	}
	if cfg.EnrichWorkers < 1 {
		cfg.EnrichWorkers = 1
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}
