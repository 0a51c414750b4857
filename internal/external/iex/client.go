package iex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/config"
	"github.com/wonny/quantfolio/pkg/httputil"
	"github.com/wonny/quantfolio/pkg/logger"
)

const providerName = "iex"

// Client handles communication with IEX Cloud
// ⭐ SSOT: IEX 시세 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	token      string
}

// NewClient builds a client for the environment selected in cfg
// (sandbox or production base URL with its matching token).
func NewClient(httpClient *httputil.Client, cfg config.IEXConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Component("iex"),
		baseURL:    strings.TrimRight(cfg.ActiveBaseURL(), "/"),
		token:      cfg.ActiveToken(),
	}
}

// chartPoint is one element of the chart array.
// chartCloseOnly=true responses may omit changePercent.
type chartPoint struct {
	Date          string   `json:"date"`
	Close         float64  `json:"close"`
	ChangePercent *float64 `json:"changePercent"`
}

// batchEntry is the per-symbol object of /stock/market/batch
type batchEntry struct {
	Chart []chartPoint `json:"chart"`
}

// HistoricalPrices downloads close-only bars.
// One symbol hits /stock/{symbol}/chart, several hit the batch endpoint.
func (c *Client) HistoricalPrices(ctx context.Context, symbols []string, q contracts.PriceQuery) (contracts.PriceSeries, error) {
	if len(symbols) == 0 {
		return nil, &contracts.InvalidInputError{Field: "symbols", Reason: "add one or more symbols"}
	}

	endpoint := c.chartURL(symbols, q)

	if len(symbols) == 1 {
		var points []chartPoint
		if err := c.getJSON(ctx, endpoint, symbols, &points); err != nil {
			return nil, err
		}
		bars, err := toBars(points)
		if err != nil {
			return nil, &contracts.ProviderError{Provider: providerName, Symbols: symbols, Err: err}
		}
		return contracts.PriceSeries{symbols[0]: bars}, nil
	}

	var batch map[string]batchEntry
	if err := c.getJSON(ctx, endpoint, symbols, &batch); err != nil {
		return nil, err
	}

	series := make(contracts.PriceSeries, len(batch))
	for symbol, entry := range batch {
		bars, err := toBars(entry.Chart)
		if err != nil {
			return nil, &contracts.ProviderError{Provider: providerName, Symbols: []string{symbol}, Err: err}
		}
		series[symbol] = bars
	}

	c.logger.WithFields(map[string]interface{}{
		"requested": len(symbols),
		"returned":  len(series),
		"range":     q.Range,
	}).Debug("Fetched historical prices")

	return series, nil
}

// chartURL builds the endpoint for a price query
func (c *Client) chartURL(symbols []string, q contracts.PriceQuery) string {
	params := url.Values{}
	params.Set("chartCloseOnly", "true")
	params.Set("token", c.token)

	var path string
	if len(symbols) == 1 {
		path = fmt.Sprintf("/stock/%s/chart", url.PathEscape(symbols[0]))
		switch {
		case q.Range != "":
			path += "/" + q.Range
		case !q.Date.IsZero():
			path += "/date/" + q.Date.Format(contracts.DateLayout)
		}
	} else {
		path = "/stock/market/batch"
		params.Set("symbols", strings.Join(symbols, ","))
		params.Set("types", "chart")
		switch {
		case q.Range != "":
			params.Set("range", q.Range)
		case !q.Date.IsZero():
			params.Set("exactDate", q.Date.Format(contracts.DateLayout))
		}
	}

	return fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
}

// getJSON performs the request and decodes a JSON body into dest.
// Anything that is not a 2xx JSON document becomes a ProviderError.
func (c *Client) getJSON(ctx context.Context, endpoint string, symbols []string, dest interface{}) error {
	resp, err := c.httpClient.Get(ctx, endpoint)
	if err != nil {
		return &contracts.ProviderError{Provider: providerName, Symbols: symbols, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &contracts.ProviderError{
			Provider: providerName, StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode),
			Symbols: symbols, Err: fmt.Errorf("read body: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &contracts.ProviderError{
			Provider: providerName, StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode),
			Symbols: symbols, Err: fmt.Errorf("unexpected response: %s", snippet(body)),
		}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return &contracts.ProviderError{
			Provider: providerName, StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode),
			Symbols: symbols, Err: fmt.Errorf("response is not valid JSON: %w", err),
		}
	}

	return nil
}

func toBars(points []chartPoint) ([]contracts.PriceBar, error) {
	bars := make([]contracts.PriceBar, 0, len(points))
	for _, p := range points {
		date, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return nil, fmt.Errorf("parse chart date %q: %w", p.Date, err)
		}
		bars = append(bars, contracts.PriceBar{
			Date:          date,
			Close:         p.Close,
			ChangePercent: p.ChangePercent,
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	fillChangePercent(bars)
	return bars, nil
}

// fillChangePercent derives a missing change from the previous close, in the
// same percent units IEX reports. The oldest bar has no previous close and stays nil.
func fillChangePercent(bars []contracts.PriceBar) {
	for i := 1; i < len(bars); i++ {
		if bars[i].ChangePercent != nil {
			continue
		}
		prev := bars[i-1].Close
		if prev <= 0 {
			continue
		}
		change := (bars[i].Close/prev - 1) * 100
		bars[i].ChangePercent = &change
	}
}

func snippet(body []byte) string {
	const max = 120
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
