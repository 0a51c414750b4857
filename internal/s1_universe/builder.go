package s1_universe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
	"github.com/wonny/quantfolio/pkg/redis"
)

// cacheKey holds the last validated constituent list
const cacheKey = "universe:latest"

// Exclusion reasons
const (
	ReasonEmptySymbol = "empty_symbol"
	ReasonNoPrice     = "no_price"
	ReasonDuplicate   = "duplicate"
)

// Builder validates and caches the index constituent list
// ⭐ SSOT: S1 유니버스 생성 (원천 → 검증 → 캐시)
type Builder struct {
	source contracts.UniverseProvider
	cache  *redis.Cache
	config Config
	logger *logger.Logger
}

// Config holds universe cache settings
type Config struct {
	CacheTTL time.Duration // 0 disables caching
}

// NewBuilder creates a new Universe Builder. cache may be nil.
func NewBuilder(source contracts.UniverseProvider, cache *redis.Cache, config Config, log *logger.Logger) *Builder {
	return &Builder{
		source: source,
		cache:  cache,
		config: config,
		logger: log.Component("universe"),
	}
}

// Snapshot returns the validated universe, serving from cache when fresh.
// Entry order (index weight) is preserved.
func (b *Builder) Snapshot(ctx context.Context) (*contracts.Universe, error) {
	if b.config.CacheTTL > 0 {
		var cached contracts.Universe
		found, err := b.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			b.logger.WithError(err).Warn("Universe cache read failed")
		}
		if found {
			return &cached, nil
		}
	}

	raw, err := b.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	universe, excluded := b.filter(raw)
	if len(excluded) > 0 {
		b.logger.WithFields(map[string]interface{}{
			"excluded": excluded,
			"kept":     len(universe.Entries),
		}).Warn("Universe entries excluded")
	}

	if b.config.CacheTTL > 0 && len(universe.Entries) > 0 {
		if err := b.cache.Set(ctx, cacheKey, universe, b.config.CacheTTL); err != nil {
			b.logger.WithError(err).Warn("Universe cache write failed")
		}
	}

	return universe, nil
}

// filter drops unusable entries and returns symbol → reason for each drop
func (b *Builder) filter(raw *contracts.Universe) (*contracts.Universe, map[string]string) {
	universe := &contracts.Universe{
		AsOf:    raw.AsOf,
		Entries: make([]contracts.UniverseEntry, 0, len(raw.Entries)),
	}
	excluded := make(map[string]string)
	seen := make(map[string]struct{}, len(raw.Entries))

	for i, e := range raw.Entries {
		e.Symbol = strings.ToUpper(strings.TrimSpace(e.Symbol))
		key := e.Symbol
		if key == "" {
			key = fmt.Sprintf("#%d", i+1)
		}

		reason := checkExclusion(e, seen)
		if reason != "" {
			excluded[key] = reason
			continue
		}

		seen[e.Symbol] = struct{}{}
		universe.Entries = append(universe.Entries, e)
	}

	return universe, excluded
}

// checkExclusion checks if an entry should be excluded and returns the reason
func checkExclusion(e contracts.UniverseEntry, seen map[string]struct{}) string {
	if e.Symbol == "" {
		return ReasonEmptySymbol
	}
	if _, dup := seen[e.Symbol]; dup {
		return ReasonDuplicate
	}
	if e.Price <= 0 {
		return ReasonNoPrice
	}
	return "" // 통과
}
