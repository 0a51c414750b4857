package slickcharts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/config"
	"github.com/wonny/quantfolio/pkg/httputil"
	"github.com/wonny/quantfolio/pkg/logger"
)

const (
	providerName = "slickcharts"
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Client scrapes the S&P 500 constituent table
// ⭐ SSOT: 유니버스(지수 구성종목) 조회는 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	url        string
	now        func() time.Time
}

// NewClient creates a new universe client.
// The page rejects requests without a browser User-Agent.
func NewClient(httpClient *httputil.Client, cfg config.UniverseConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient.WithHeader("User-Agent", userAgent),
		logger:     log.Component("slickcharts"),
		url:        cfg.URL,
		now:        time.Now,
	}
}

// Snapshot returns the constituents in index-weight order
func (c *Client) Snapshot(ctx context.Context) (*contracts.Universe, error) {
	resp, err := c.httpClient.Get(ctx, c.url)
	if err != nil {
		return nil, &contracts.ProviderError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &contracts.ProviderError{
			Provider: providerName, StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode),
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &contracts.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Err: fmt.Errorf("parse html: %w", err)}
	}

	entries, err := parseTable(doc)
	if err != nil {
		return nil, &contracts.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.WithField("count", len(entries)).Debug("Fetched universe")

	return &contracts.Universe{AsOf: c.now(), Entries: entries}, nil
}

// parseTable locates the constituent table by its header and reads every row.
// 컬럼: # | Company | Symbol | Weight | Price | Chg | % Chg
func parseTable(doc *goquery.Document) ([]contracts.UniverseEntry, error) {
	var table *goquery.Selection
	cols := map[string]int{}

	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		found := map[string]int{}
		t.Find("thead th").Each(func(i int, th *goquery.Selection) {
			found[strings.TrimSpace(th.Text())] = i
		})
		if _, ok := found["Symbol"]; ok {
			table = t
			cols = found
			return false
		}
		return true
	})

	if table == nil {
		return nil, fmt.Errorf("constituent table not found")
	}

	for _, name := range []string{"Company", "Symbol", "Weight", "Price", "% Chg"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("constituent table missing column %q", name)
		}
	}

	var entries []contracts.UniverseEntry
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		cell := func(name string) string {
			return strings.TrimSpace(cells.Eq(cols[name]).Text())
		}

		symbol := strings.ToUpper(cell("Symbol"))
		if symbol == "" {
			return
		}

		entry := contracts.UniverseEntry{
			Symbol:        symbol,
			Company:       cell("Company"),
			Weight:        parseNumber(cell("Weight")),
			Price:         parseNumber(cell("Price")),
			PercentChange: parseNumber(cell("% Chg")),
		}

		// "% Chg" is often rendered as "(0.53%)" without a sign; Chg carries it
		if chgIdx, ok := cols["Chg"]; ok && entry.PercentChange > 0 {
			if chg := parseNumber(strings.TrimSpace(cells.Eq(chgIdx).Text())); chg < 0 {
				entry.PercentChange = -entry.PercentChange
			}
		}

		entries = append(entries, entry)
	})

	if len(entries) == 0 {
		return nil, fmt.Errorf("constituent table has no rows")
	}

	return entries, nil
}

// parseNumber strips currency and percent decoration ("$1,234.50", "(0.53%)", "-1.2%")
func parseNumber(s string) float64 {
	s = strings.NewReplacer("$", "", ",", "", "%", "", "(", "", ")", "", " ", "").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n
}
