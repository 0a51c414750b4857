package s0_data

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
	"github.com/wonny/quantfolio/pkg/redis"
)

// DefaultBatchLimit is the provider's per-request symbol cap
const DefaultBatchLimit = 100

// Fetcher shards symbol lists across concurrent provider calls
// ⭐ SSOT: S0 외부 데이터 조회(가격/펀더멘털)는 이 Fetcher를 통해서만
type Fetcher struct {
	prices       contracts.PriceProvider
	fundamentals contracts.FundamentalsProvider
	cache        *redis.Cache
	logger       *logger.Logger
	config       Config
	now          func() time.Time
}

// Config holds fetcher sharding configuration
type Config struct {
	Workers    int // concurrent shards for fundamentals
	ChunkSize  int // fixed shard size; 0 means ceil(n / Workers)
	BatchLimit int // max symbols per history request
}

// NewFetcher creates a new Fetcher. cache may be nil.
func NewFetcher(
	prices contracts.PriceProvider,
	fundamentals contracts.FundamentalsProvider,
	cache *redis.Cache,
	cfg Config,
	log *logger.Logger,
) *Fetcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchLimit < 1 {
		cfg.BatchLimit = DefaultBatchLimit
	}
	return &Fetcher{
		prices:       prices,
		fundamentals: fundamentals,
		cache:        cache,
		logger:       log.Component("fetcher"),
		config:       cfg,
		now:          time.Now,
	}
}

// NormalizeSymbols trims, upper-cases and de-duplicates symbols keeping first occurrence
func NormalizeSymbols(symbols []string) ([]string, error) {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if len(out) == 0 {
		return nil, &contracts.InvalidInputError{Field: "symbols", Reason: "add one or more symbols"}
	}
	return out, nil
}

// Chunk splits symbols into consecutive slices of at most size elements
func Chunk(symbols []string, size int) [][]string {
	if size < 1 {
		size = len(symbols)
	}
	var chunks [][]string
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[start:end])
	}
	return chunks
}

// shardSize returns the fixed chunk size or ceil(n / workers)
func (f *Fetcher) shardSize(n int) int {
	if f.config.ChunkSize > 0 {
		return f.config.ChunkSize
	}
	return (n + f.config.Workers - 1) / f.config.Workers
}

// HistoricalPrices fetches close-only bars in batches of BatchLimit symbols.
// The first failing batch cancels the rest and its error is returned.
func (f *Fetcher) HistoricalPrices(ctx context.Context, symbols []string, q contracts.PriceQuery) (contracts.PriceSeries, error) {
	symbols, err := NormalizeSymbols(symbols)
	if err != nil {
		return nil, err
	}

	chunks := Chunk(symbols, f.config.BatchLimit)
	result := make(contracts.PriceSeries, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			series, err := f.prices.HistoricalPrices(gctx, chunk, q)
			if err != nil {
				return err
			}
			mu.Lock()
			for sym, bars := range series {
				result[sym] = bars
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch historical prices: %w", err)
	}

	f.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"batches": len(chunks),
		"range":   q.Range,
	}).Debug("Fetched historical prices")

	return result, nil
}

// Fundamentals fetches ratios for symbols sharded across workers.
// Cached values (when Redis is enabled) skip the provider.
func (f *Fetcher) Fundamentals(ctx context.Context, symbols []string) (map[string]contracts.Fundamentals, error) {
	symbols, err := NormalizeSymbols(symbols)
	if err != nil {
		return nil, err
	}

	today := f.now()
	result := make(map[string]contracts.Fundamentals, len(symbols))
	missing := make([]string, 0, len(symbols))

	for _, sym := range symbols {
		var cached contracts.Fundamentals
		found, err := f.cache.Get(ctx, redis.FundamentalsKey(sym, today), &cached)
		if err != nil {
			f.logger.WithError(err).WithField("symbol", sym).Warn("Fundamentals cache read failed")
		}
		if found {
			result[sym] = cached
			continue
		}
		missing = append(missing, sym)
	}

	if len(missing) == 0 {
		return result, nil
	}

	shards := Chunk(missing, f.shardSize(len(missing)))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, shard := range shards {
		shard := shard
		g.Go(func() error {
			data, err := f.fundamentals.Fundamentals(gctx, shard)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, sym := range shard {
				fund, ok := data[sym]
				if !ok {
					fund = contracts.Fundamentals{Symbol: sym}
				}
				result[sym] = fund
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch fundamentals: %w", err)
	}

	// 빈 결과는 캐시하지 않음 (다음 실행에서 재조회)
	for _, sym := range missing {
		if result[sym].Empty() {
			continue
		}
		if err := f.cache.Set(ctx, redis.FundamentalsKey(sym, today), result[sym], redis.TTLDaily); err != nil {
			f.logger.WithError(err).WithField("symbol", sym).Warn("Fundamentals cache write failed")
		}
	}

	f.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"cached":  len(symbols) - len(missing),
		"shards":  len(shards),
	}).Debug("Fetched fundamentals")

	return result, nil
}
