package iex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/config"
	"github.com/wonny/quantfolio/pkg/httputil"
	"github.com/wonny/quantfolio/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.IEXConfig{
		Sandbox:        true,
		SandboxBaseURL: server.URL + "/stable/",
		SandboxToken:   "Tsk_test",
	}
	return NewClient(httputil.New(logger.Nop()).DisableRetry(), cfg, logger.Nop())
}

func TestHistoricalPrices_SingleSymbolUsesChartEndpoint(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stable/stock/AAPL/chart/3m", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("chartCloseOnly"))
		assert.Equal(t, "Tsk_test", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`[
			{"date":"2026-01-06","close":182.5,"changePercent":1.39},
			{"date":"2026-01-05","close":180.0,"changePercent":-0.5}
		]`))
	})

	series, err := client.HistoricalPrices(context.Background(), []string{"AAPL"}, contracts.PriceQuery{Range: "3m"})
	require.NoError(t, err)
	require.Len(t, series["AAPL"], 2)

	// bars are returned oldest first
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), series["AAPL"][0].Date)
	last, ok := series.LastClose("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 182.5, last)
}

func TestHistoricalPrices_SingleSymbolByDate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stable/stock/MSFT/chart/date/20260302", r.URL.Path)
		_, _ = w.Write([]byte(`[{"date":"2026-03-02","close":401.2,"changePercent":0.2}]`))
	})

	q := contracts.PriceQuery{Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)}
	series, err := client.HistoricalPrices(context.Background(), []string{"MSFT"}, q)
	require.NoError(t, err)
	assert.Len(t, series["MSFT"], 1)
}

func TestHistoricalPrices_BatchEndpoint(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stable/stock/market/batch", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "AAPL,MSFT", q.Get("symbols"))
		assert.Equal(t, "chart", q.Get("types"))
		assert.Equal(t, "5d", q.Get("range"))
		_, _ = w.Write([]byte(`{
			"AAPL":{"chart":[{"date":"2026-01-05","close":180,"changePercent":0.1}]},
			"MSFT":{"chart":[{"date":"2026-01-05","close":400,"changePercent":0.2}]}
		}`))
	})

	series, err := client.HistoricalPrices(context.Background(), []string{"AAPL", "MSFT"}, contracts.PriceQuery{Range: "5d"})
	require.NoError(t, err)
	assert.Len(t, series, 2)
	assert.Equal(t, 400.0, series["MSFT"][0].Close)
}

func TestHistoricalPrices_NonJSONIsProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := client.HistoricalPrices(context.Background(), []string{"AAPL", "MSFT"}, contracts.PriceQuery{Range: "3m"})
	require.Error(t, err)

	var pe *contracts.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "iex", pe.Provider)
	assert.Equal(t, http.StatusOK, pe.StatusCode)
	assert.ErrorIs(t, err, contracts.ErrProvider)
}

func TestHistoricalPrices_HTTPErrorCarriesStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`Out of credits`))
	})

	_, err := client.HistoricalPrices(context.Background(), []string{"AAPL"}, contracts.PriceQuery{})

	var pe *contracts.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusPaymentRequired, pe.StatusCode)
	assert.Equal(t, []string{"AAPL"}, pe.Symbols)
}

func TestHistoricalPrices_EmptySymbols(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.HistoricalPrices(context.Background(), nil, contracts.PriceQuery{})
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}

func TestHistoricalPrices_CloseOnlyDerivesChange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"date":"2026-01-05","close":100,"volume":1000},
			{"date":"2026-01-06","close":110,"volume":1000},
			{"date":"2026-01-07","close":121,"volume":1000}
		]`))
	})

	series, err := client.HistoricalPrices(context.Background(), []string{"AAPL"}, contracts.PriceQuery{Range: "5d"})
	require.NoError(t, err)

	bars := series["AAPL"]
	require.Len(t, bars, 3)
	assert.Nil(t, bars[0].ChangePercent)
	for _, b := range bars[1:] {
		require.NotNil(t, b.ChangePercent)
		assert.InDelta(t, 10.0, *b.ChangePercent, 1e-9)
	}
}

func TestHistoricalPrices_ReportedChangeWins(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"date":"2026-01-05","close":100,"changePercent":0.5},
			{"date":"2026-01-06","close":110,"changePercent":-0.25}
		]`))
	})

	series, err := client.HistoricalPrices(context.Background(), []string{"AAPL"}, contracts.PriceQuery{Range: "5d"})
	require.NoError(t, err)

	bars := series["AAPL"]
	require.Len(t, bars, 2)
	require.NotNil(t, bars[1].ChangePercent)
	assert.Equal(t, -0.25, *bars[1].ChangePercent)
}
