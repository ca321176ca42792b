package service

import (
	"context"

	"github.com/user/reelpick/internal/config"
	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/repository"
	"github.com/user/reelpick/internal/utils"
)

// Services 按配置组装好的服务集合
type Services struct {
	Recommender *Recommender
	Ledger      *UsageLedger
	Landing     *LandingService
	Cleanup     *CleanupService
}

// NewServices 创建外部客户端并组装推荐管道
func NewServices(ctx context.Context, cfg *config.Config, store *repository.Store) (*Services, error) {
	llm, err := utils.NewGeminiClient(ctx, cfg.GeminiKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}

	ledger := NewUsageLedger(store.Usage)
	burst := int(cfg.ProviderRPS)
	tmdb := NewTMDBClient(TMDBClientOptions{
		BaseURL: cfg.TMDBBaseURL,
		Token:   cfg.TMDBToken,
		APIKey:  cfg.TMDBAPIKey,
		HTTP: utils.NewHTTPClient(utils.HTTPClientOptions{
			Name: model.ProviderTMDB, Timeout: cfg.ProviderTimeout, RPS: cfg.ProviderRPS, Burst: burst,
		}),
		Images: utils.NewHTTPClient(utils.HTTPClientOptions{
			Name: "tmdb-images", Timeout: cfg.ProviderTimeout,
		}),
		Recorder: ledger,
	})
	omdb := NewOMDBClient(cfg.OMDBBaseURL, cfg.OMDBAPIKey, utils.NewHTTPClient(utils.HTTPClientOptions{
		Name: model.ProviderOMDB, Timeout: cfg.ProviderTimeout, RPS: cfg.ProviderRPS, Burst: burst,
	}), ledger)

	genres := NewGenreCatalog(store.Genres, tmdb)
	keywords := NewKeywordResolver(store.Keywords, tmdb, cfg.KeywordThreshold)
	enricher := NewEnricher(tmdb, omdb, tmdb, store.Movies, EnricherOptions{
		Workers:       cfg.EnrichWorkers,
		MaxCandidates: cfg.MaxCandidates,
		StreamingTTL:  cfg.StreamingTTL,
		PosterDir:     cfg.PosterDir,
	})

	recommender := NewRecommender(
		NewFilterExtractor(llm, genres, keywords, cfg.LLMTimeout),
		NewFallbackChain(NewDiscoverer(tmdb), store.Movies, enricher, genres, llm, cfg.LLMTimeout),
		enricher,
		NewComposer(llm, store.Prompts, cfg.LLMTimeout),
		RecommenderOptions{TopN: cfg.TopN, StreamingFilterMin: cfg.StreamingFilterMin},
	)

	return &Services{
		Recommender: recommender,
		Ledger:      ledger,
		Landing:     NewLandingService(store.Movies),
		Cleanup:     NewCleanupService(store.Usage, cfg.UsageRetentionDays),
	}, nil
}
