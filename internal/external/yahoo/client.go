package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/config"
	"github.com/wonny/quantfolio/pkg/httputil"
	"github.com/wonny/quantfolio/pkg/logger"
)

const providerName = "yahoo"

// Client fetches balance-sheet ratios from the Yahoo Finance quoteSummary API
// ⭐ SSOT: 펀더멘털(PBR, ROE) 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a new fundamentals client
func NewClient(httpClient *httputil.Client, cfg config.YahooConfig, log *logger.Logger) *Client {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.Component("yahoo"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} wrapper; empty objects mean "no data"
type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			DefaultKeyStatistics struct {
				PriceToBook rawValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				ReturnOnEquity rawValue `json:"returnOnEquity"`
			} `json:"financialData"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Fundamentals fetches ratios one symbol at a time.
// Unknown symbols and absent ratios come back as nil fields.
func (c *Client) Fundamentals(ctx context.Context, symbols []string) (map[string]contracts.Fundamentals, error) {
	if len(symbols) == 0 {
		return nil, &contracts.InvalidInputError{Field: "symbols", Reason: "add one or more symbols"}
	}

	out := make(map[string]contracts.Fundamentals, len(symbols))
	for _, symbol := range symbols {
		f, err := c.fetchOne(ctx, symbol)
		if err != nil {
			return nil, err
		}
		out[symbol] = f
	}

	return out, nil
}

func (c *Client) fetchOne(ctx context.Context, symbol string) (contracts.Fundamentals, error) {
	result := contracts.Fundamentals{Symbol: symbol}

	if err := c.limiter.Wait(ctx); err != nil {
		return result, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("modules", "defaultKeyStatistics,financialData")
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", c.baseURL, url.PathEscape(yahooSymbol(symbol)), params.Encode())

	resp, err := c.httpClient.Get(ctx, endpoint)
	if err != nil {
		return result, &contracts.ProviderError{Provider: providerName, Symbols: []string{symbol}, Err: err}
	}
	defer resp.Body.Close()

	// unknown ticker: no ratios, not a failure
	if resp.StatusCode == http.StatusNotFound {
		c.logger.WithField("symbol", symbol).Warn("Symbol not found, ratios unavailable")
		return result, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, &contracts.ProviderError{
			Provider: providerName, StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode),
			Symbols: []string{symbol}, Err: fmt.Errorf("read body: %w", err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return result, &contracts.ProviderError{
			Provider: providerName, StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode),
			Symbols: []string{symbol},
		}
	}

	var parsed quoteSummaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return result, &contracts.ProviderError{
			Provider: providerName, StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode),
			Symbols: []string{symbol}, Err: fmt.Errorf("response is not valid JSON: %w", err),
		}
	}

	if len(parsed.QuoteSummary.Result) == 0 {
		return result, nil
	}

	r := parsed.QuoteSummary.Result[0]
	result.PriceToBook = r.DefaultKeyStatistics.PriceToBook.Raw
	result.ReturnOnEquity = r.FinancialData.ReturnOnEquity.Raw

	return result, nil
}

// yahooSymbol converts share-class dots to Yahoo's dash notation (BRK.B → BRK-B)
func yahooSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}
