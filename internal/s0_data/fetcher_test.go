package s0_data

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
	"github.com/wonny/quantfolio/pkg/redis"
)

type fakePrices struct {
	mu      sync.Mutex
	batches [][]string
	fail    string
}

func (f *fakePrices) HistoricalPrices(_ context.Context, symbols []string, _ contracts.PriceQuery) (contracts.PriceSeries, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), symbols...))
	f.mu.Unlock()

	out := contracts.PriceSeries{}
	for _, s := range symbols {
		if s == f.fail {
			return nil, &contracts.ProviderError{Provider: "fake", StatusCode: 500, Symbols: symbols}
		}
		change := 0.1
		out[s] = []contracts.PriceBar{{Close: 100, ChangePercent: &change}}
	}
	return out, nil
}

type fakeFundamentals struct {
	calls   atomic.Int32
	symbols sync.Map
	absent  string
}

func (f *fakeFundamentals) Fundamentals(_ context.Context, symbols []string) (map[string]contracts.Fundamentals, error) {
	f.calls.Add(1)
	out := map[string]contracts.Fundamentals{}
	for _, s := range symbols {
		f.symbols.Store(s, true)
		if s == f.absent {
			continue
		}
		pb, roe := 1.5, 0.2
		out[s] = contracts.Fundamentals{Symbol: s, PriceToBook: &pb, ReturnOnEquity: &roe}
	}
	return out, nil
}

func symbolsN(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('A'+i/26)) + string(rune('A'+i%26))
	}
	return out
}

func TestNormalizeSymbols(t *testing.T) {
	got, err := NormalizeSymbols([]string{" aapl", "MSFT", "AAPL", "", "msft "})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)

	_, err = NormalizeSymbols([]string{" ", ""})
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]string{"A", "B", "C", "D", "E"}, 2)
	assert.Equal(t, [][]string{{"A", "B"}, {"C", "D"}, {"E"}}, chunks)

	assert.Len(t, Chunk([]string{"A", "B"}, 0), 1)
	assert.Empty(t, Chunk(nil, 3))
}

func TestHistoricalPrices_BatchesByLimit(t *testing.T) {
	prices := &fakePrices{}
	f := NewFetcher(prices, &fakeFundamentals{}, nil, Config{Workers: 4, BatchLimit: 100}, logger.Nop())

	series, err := f.HistoricalPrices(context.Background(), symbolsN(250), contracts.PriceQuery{Range: "3m"})
	require.NoError(t, err)
	assert.Len(t, series, 250)

	sizes := make([]int, 0, len(prices.batches))
	for _, b := range prices.batches {
		sizes = append(sizes, len(b))
	}
	sort.Ints(sizes)
	assert.Equal(t, []int{50, 100, 100}, sizes)
}

func TestHistoricalPrices_FirstErrorWins(t *testing.T) {
	f := NewFetcher(&fakePrices{fail: "AB"}, &fakeFundamentals{}, nil, Config{BatchLimit: 10}, logger.Nop())

	_, err := f.HistoricalPrices(context.Background(), symbolsN(30), contracts.PriceQuery{})

	var pe *contracts.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "fake", pe.Provider)
}

func TestFundamentals_ShardsAcrossWorkers(t *testing.T) {
	funds := &fakeFundamentals{}
	f := NewFetcher(&fakePrices{}, funds, nil, Config{Workers: 4}, logger.Nop())

	got, err := f.Fundamentals(context.Background(), symbolsN(25))
	require.NoError(t, err)
	assert.Len(t, got, 25)
	// ceil(25/4) = 7 → 4 shards
	assert.Equal(t, int32(4), funds.calls.Load())
}

func TestFundamentals_FixedChunkSize(t *testing.T) {
	funds := &fakeFundamentals{}
	f := NewFetcher(&fakePrices{}, funds, nil, Config{Workers: 2, ChunkSize: 5}, logger.Nop())

	_, err := f.Fundamentals(context.Background(), symbolsN(12))
	require.NoError(t, err)
	assert.Equal(t, int32(3), funds.calls.Load())
}

func TestFundamentals_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	cache := redis.NewCache(client, "test")

	funds := &fakeFundamentals{}
	f := NewFetcher(&fakePrices{}, funds, cache, Config{Workers: 1}, logger.Nop())
	f.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	first, err := f.Fundamentals(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), funds.calls.Load())

	second, err := f.Fundamentals(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), funds.calls.Load(), "second call should be served from cache")
	assert.Equal(t, *first["AAPL"].PriceToBook, *second["AAPL"].PriceToBook)

	assert.True(t, mr.Exists("test:cache:fundamentals:AAPL:20240301"))
}

func TestFundamentals_EmptyResultNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	cache := redis.NewCache(client, "test")

	funds := &fakeFundamentals{absent: "MSFT"}
	f := NewFetcher(&fakePrices{}, funds, cache, Config{Workers: 1}, logger.Nop())
	f.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	got, err := f.Fundamentals(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.True(t, got["MSFT"].Empty())
	assert.False(t, got["AAPL"].Empty())

	assert.True(t, mr.Exists("test:cache:fundamentals:AAPL:20240301"))
	assert.False(t, mr.Exists("test:cache:fundamentals:MSFT:20240301"))

	// next call retries only the symbol that came back empty
	_, err = f.Fundamentals(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), funds.calls.Load())
}
