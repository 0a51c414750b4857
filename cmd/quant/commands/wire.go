package commands

import (
	"context"
	"fmt"

	"github.com/wonny/quantfolio/internal/external/iex"
	"github.com/wonny/quantfolio/internal/external/slickcharts"
	"github.com/wonny/quantfolio/internal/external/yahoo"
	"github.com/wonny/quantfolio/internal/portfolio"
	"github.com/wonny/quantfolio/internal/s0_data"
	"github.com/wonny/quantfolio/internal/s0_data/quality"
	"github.com/wonny/quantfolio/internal/s1_universe"
	"github.com/wonny/quantfolio/internal/s2_signals"
	"github.com/wonny/quantfolio/internal/selection"
	"github.com/wonny/quantfolio/internal/strategyconfig"
	"github.com/wonny/quantfolio/pkg/config"
	"github.com/wonny/quantfolio/pkg/database"
	"github.com/wonny/quantfolio/pkg/httputil"
	"github.com/wonny/quantfolio/pkg/logger"
	"github.com/wonny/quantfolio/pkg/redis"
)

// app bundles every dependency a command needs
// ⭐ SSOT: 의존성 조립은 여기서만 (전역 변수 없음)
type app struct {
	cfg          *config.Config
	strategy     *strategyconfig.Config
	strategyHash string
	log          *logger.Logger
	db           *database.DB
	redis        *redis.Client
	cache        *redis.Cache
	manager      *portfolio.Manager
}

// newApp loads config, connects to Postgres/Redis, applies the schema and
// assembles the provider → signal → ranking → portfolio chain.
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load strategy
	strategy, err := strategyconfig.LoadOrDefault(cfg.StrategyFile)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	log.WithFields(map[string]interface{}{
		"env":         cfg.Env,
		"strategy_id": strategy.Meta.StrategyID,
		"hash":        hash[:12],
		"sandbox":     cfg.IEX.Sandbox,
	}).Info("Initializing")

	// 4. Connect to database and apply schema
	if err := database.EnsureSchema(cfg.Database.URL); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 5. Connect to Redis (disabled config → no-op client)
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(rdb, "quant")
	limiter := redis.NewRateLimiter(rdb, "quant")

	// 6. External providers
	iexClient := iex.NewClient(
		httputil.NewWithTimeout(log, cfg.IEX.Timeout).WithRateLimiter(limiter, redis.IEXRateLimit),
		cfg.IEX, log,
	)
	yahooClient := yahoo.NewClient(httputil.New(log), cfg.Yahoo, log)
	universeClient := slickcharts.NewClient(
		httputil.New(log).WithRateLimiter(limiter, redis.UniverseRateLimit),
		cfg.Universe, log,
	)
	universe := s1_universe.NewBuilder(universeClient, cache, s1_universe.Config{CacheTTL: cfg.Universe.CacheTTL}, log)

	// 7. Fetcher (sharded, cached fundamentals)
	workers := strategy.Fetch.Workers
	if workers <= 0 {
		workers = cfg.Portfolio.FetchWorkers
	}
	fetcher := s0_data.NewFetcher(iexClient, yahooClient, cache, s0_data.Config{
		Workers:    workers,
		ChunkSize:  strategy.Fetch.ChunkSize,
		BatchLimit: strategy.Fetch.BatchLimit,
	}, log)

	// 8. Signals and ranking
	gate := quality.NewQualityGate(quality.Config{
		MinPriceCoverage:        strategy.Quality.MinPriceCoverage,
		MinFundamentalsCoverage: strategy.Quality.MinFundamentalsCoverage,
	})
	momentum := s2_signals.NewMomentumCalculator(strategy.Momentum.TradingDaysPerMonth, log)
	aggregator := s2_signals.NewAggregator(fetcher, fetcher, momentum, gate, strategy.Momentum.Range, log)
	ranker := selection.NewRanker(log)

	// 9. Portfolio
	constructor := portfolio.NewConstructor(
		strategy.Portfolio.TopN,
		portfolio.Constraints{BlackList: strategy.Portfolio.Exclude},
		log,
	)
	store := portfolio.NewRepository(db.Pool)
	manager := portfolio.NewManager(store, universe, aggregator, ranker, fetcher, constructor, portfolio.ManagerConfig{
		CandidateCount:   strategy.Universe.CandidateCount,
		UpdateRange:      strategy.Portfolio.UpdateRange,
		OperationTimeout: cfg.Portfolio.OperationTimeout,
		StrategyHash:     hash,
	}, log)

	return &app{
		cfg:          cfg,
		strategy:     strategy,
		strategyHash: hash,
		log:          log,
		db:           db,
		redis:        rdb,
		cache:        cache,
		manager:      manager,
	}, nil
}

// Close releases database and Redis connections
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
