package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/wonny/quantfolio/internal/audit"
	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
)

// PortfolioReader is the read side of the portfolio manager
type PortfolioReader interface {
	Status(ctx context.Context) (*contracts.Portfolio, error)
}

// PortfolioHandler serves the persisted portfolio (read-only)
// ⭐ SSOT: 포트폴리오 API 핸들러는 이 구조체에서만
type PortfolioHandler struct {
	reader   PortfolioReader
	analyzer *audit.Analyzer
	logger   *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(reader PortfolioReader, analyzer *audit.Analyzer, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		reader:   reader,
		analyzer: analyzer,
		logger:   log,
	}
}

// Summary is the portfolio overview
type Summary struct {
	Holdings     int                      `json:"holdings"`
	Orders       int                      `json:"orders"`
	CurrentValue decimal.Decimal          `json:"current_value"`
	Latest       *contracts.ValueSnapshot `json:"latest,omitempty"`
}

func (h *PortfolioHandler) load(w http.ResponseWriter, r *http.Request) (*contracts.Portfolio, bool) {
	p, err := h.reader.Status(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read portfolio")
		respondError(w, statusFor(err), "Failed to retrieve portfolio")
		return nil, false
	}
	return p, true
}

// GetSummary returns counts and the current value
// GET /api/portfolio
func (h *PortfolioHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}

	summary := Summary{
		Holdings:     len(p.Holdings),
		Orders:       len(p.Orders),
		CurrentValue: p.CurrentValue(),
	}
	if len(p.Values) > 0 {
		latest := p.Values[len(p.Values)-1]
		summary.Latest = &latest
	}

	respondJSON(w, http.StatusOK, summary)
}

// GetHoldings returns the current holding set
// GET /api/portfolio/holdings
func (h *PortfolioHandler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.load(w, r); ok {
		respondJSON(w, http.StatusOK, p.Holdings)
	}
}

// GetOrders returns the order log
// GET /api/portfolio/orders
func (h *PortfolioHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.load(w, r); ok {
		respondJSON(w, http.StatusOK, p.Orders)
	}
}

// GetValues returns the value history
// GET /api/portfolio/values
func (h *PortfolioHandler) GetValues(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.load(w, r); ok {
		respondJSON(w, http.StatusOK, p.Values)
	}
}

// GetPerformance returns return/risk statistics over the value history
// GET /api/portfolio/performance?period=1M|3M|6M|1Y|YTD|ALL
func (h *PortfolioHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}

	report, err := h.analyzer.Analyze(r.URL.Query().Get("period"), p.Values, p.Orders)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, report)
}
