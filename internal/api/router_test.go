package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantfolio/internal/api/handlers"
	"github.com/wonny/quantfolio/internal/audit"
	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/database"
	"github.com/wonny/quantfolio/pkg/logger"
	"github.com/wonny/quantfolio/pkg/redis"
)

type stubReader struct {
	portfolio *contracts.Portfolio
	err       error
}

func (s *stubReader) Status(context.Context) (*contracts.Portfolio, error) {
	return s.portfolio, s.err
}

type stubRanker struct {
	ranked []contracts.RankedSymbol
	err    error
	calls  int
}

func (s *stubRanker) Rank(context.Context) ([]contracts.RankedSymbol, *contracts.Universe, error) {
	s.calls++
	return s.ranked, &contracts.Universe{}, s.err
}

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context) (*database.HealthStatus, error) {
	return &database.HealthStatus{Healthy: s.err == nil, Timestamp: time.Now()}, s.err
}

func samplePortfolio() *contracts.Portfolio {
	day := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	return &contracts.Portfolio{
		Holdings: []contracts.Holding{{Symbol: "AAPL", ShareCount: decimal.NewFromInt(100), HoldingValue: decimal.NewFromInt(10000)}},
		Orders:   []contracts.OrderRecord{{Date: day, Symbol: "AAPL", SharesDelta: decimal.NewFromInt(100), Price: decimal.NewFromInt(100)}},
		Values:   []contracts.ValueSnapshot{{Date: day, TotalValue: decimal.NewFromInt(10000)}},
	}
}

func newTestRouter(t *testing.T, reader *stubReader, ranker *stubRanker, health HealthChecker) http.Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := redis.NewCache(redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})), "test")

	return NewRouter(
		handlers.NewPortfolioHandler(reader, audit.NewAnalyzer(logger.Nop()), logger.Nop()),
		handlers.NewRankingHandler(ranker, cache, logger.Nop()),
		health,
		logger.Nop(),
	)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPortfolioEndpoints(t *testing.T) {
	router := newTestRouter(t, &stubReader{portfolio: samplePortfolio()}, &stubRanker{}, stubHealth{})

	rec := get(t, router, "/api/portfolio")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, float64(1), summary["holdings"])
	assert.Equal(t, "10000", summary["current_value"])

	rec = get(t, router, "/api/portfolio/holdings")
	require.Equal(t, http.StatusOK, rec.Code)
	var holdings []contracts.Holding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &holdings))
	assert.Equal(t, "AAPL", holdings[0].Symbol)

	rec = get(t, router, "/api/portfolio/orders")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"shares_delta":"100"`)

	rec = get(t, router, "/api/portfolio/values")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_value":"10000"`)
}

func TestPerformanceEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubReader{portfolio: samplePortfolio()}, &stubRanker{}, stubHealth{})

	rec := get(t, router, "/api/portfolio/performance?period=all")
	require.Equal(t, http.StatusOK, rec.Code)
	var report audit.PerformanceReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "ALL", report.Period)
	assert.Equal(t, 1, report.Observations)
	assert.Equal(t, 1, report.OrderCount)

	rec = get(t, router, "/api/portfolio/performance?period=2W")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortfolioEndpoint_StoreError(t *testing.T) {
	router := newTestRouter(t, &stubReader{err: errors.New("db down")}, &stubRanker{}, stubHealth{})

	rec := get(t, router, "/api/portfolio/holdings")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRankingEndpoint_CachesAndLimits(t *testing.T) {
	ranker := &stubRanker{ranked: []contracts.RankedSymbol{
		{Symbol: "B", Rank: 1, CompositeScore: 183.3},
		{Symbol: "C", Rank: 2, CompositeScore: 183.3},
		{Symbol: "A", Rank: 3, CompositeScore: 83.3},
	}}
	router := newTestRouter(t, &stubReader{portfolio: samplePortfolio()}, ranker, stubHealth{})

	rec := get(t, router, "/api/ranking?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.RankingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Ranked, 2)
	assert.Equal(t, "B", resp.Ranked[0].Symbol)

	rec = get(t, router, "/api/ranking")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Ranked, 3)
	assert.Equal(t, 1, ranker.calls, "second request should be served from cache")

	rec = get(t, router, "/api/ranking?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankingEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"provider", &contracts.ProviderError{Provider: "iex", StatusCode: 500}, http.StatusBadGateway},
		{"insufficient", &contracts.InsufficientDataError{Requested: 3}, http.StatusUnprocessableEntity},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &stubReader{}, &stubRanker{err: tt.err}, stubHealth{})
			assert.Equal(t, tt.code, get(t, router, "/api/ranking").Code)
		})
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &stubReader{}, &stubRanker{}, stubHealth{})
	assert.Equal(t, http.StatusOK, get(t, router, "/health").Code)

	router = newTestRouter(t, &stubReader{}, &stubRanker{}, stubHealth{err: errors.New("refused")})
	rec := get(t, router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, &stubReader{portfolio: samplePortfolio()}, &stubRanker{}, stubHealth{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/portfolio/holdings", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
