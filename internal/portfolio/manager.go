package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/internal/execution"
	"github.com/wonny/quantfolio/pkg/logger"
)

// State of the portfolio lifecycle
type State string

const (
	StateUninitialized State = "uninitialized"
	StateActive        State = "active"
)

const (
	opCreate    = "create"
	opUpdate    = "update"
	opRebalance = "rebalance"
)

// DefaultOperationTimeout bounds a single create/update/rebalance
const DefaultOperationTimeout = 5 * time.Minute

// Manager is the portfolio state machine
// ⭐ SSOT: 포트폴리오 상태 변경(create/update/rebalance)은 여기서만
type Manager struct {
	mu sync.Mutex

	store       contracts.PortfolioStore
	universe    contracts.UniverseProvider
	metrics     contracts.MetricSource
	ranker      contracts.Ranker
	prices      contracts.PriceProvider
	constructor *Constructor
	planner     *execution.Planner
	logger      *logger.Logger
	config      ManagerConfig
	now         func() time.Time
}

// ManagerConfig holds runtime parameters for the state machine
type ManagerConfig struct {
	CandidateCount   int
	UpdateRange      string
	OperationTimeout time.Duration
	StrategyHash     string
}

// Report describes what one operation wrote
type Report struct {
	Operation string                   `json:"operation"`
	Date      time.Time                `json:"date"`
	Ranked    []contracts.RankedSymbol `json:"ranked,omitempty"`
	Holdings  []contracts.Holding      `json:"holdings"`
	Orders    []contracts.OrderRecord  `json:"orders"`
	Snapshot  contracts.ValueSnapshot  `json:"snapshot"`
}

// NewManager creates a new portfolio manager
func NewManager(
	store contracts.PortfolioStore,
	universe contracts.UniverseProvider,
	metrics contracts.MetricSource,
	ranker contracts.Ranker,
	prices contracts.PriceProvider,
	constructor *Constructor,
	cfg ManagerConfig,
	log *logger.Logger,
) *Manager {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultOperationTimeout
	}
	if cfg.UpdateRange == "" {
		cfg.UpdateRange = "5d"
	}
	return &Manager{
		store:       store,
		universe:    universe,
		metrics:     metrics,
		ranker:      ranker,
		prices:      prices,
		constructor: constructor,
		planner:     execution.NewPlanner(log),
		logger:      log.Component("portfolio"),
		config:      cfg,
		now:         time.Now,
	}
}

// today is the calendar date stamped on orders and snapshots
func (m *Manager) today() time.Time {
	y, mo, d := m.now().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// begin serializes operations and applies the operation timeout
func (m *Manager) begin(ctx context.Context) (context.Context, func()) {
	m.mu.Lock()
	ctx, cancel := context.WithTimeout(ctx, m.config.OperationTimeout)
	return ctx, func() {
		cancel()
		m.mu.Unlock()
	}
}

// State reports whether the portfolio has been created
func (m *Manager) State(ctx context.Context) (State, error) {
	_, err := m.store.LatestValue(ctx)
	if errors.Is(err, contracts.ErrNoSnapshot) {
		return StateUninitialized, nil
	}
	if err != nil {
		return "", fmt.Errorf("read latest value: %w", err)
	}
	return StateActive, nil
}

func (m *Manager) requireState(ctx context.Context, op string, want State) error {
	state, err := m.State(ctx)
	if err != nil {
		return err
	}
	if state != want {
		return &contracts.InvalidStateError{Op: op, State: string(state)}
	}
	return nil
}

// Rank scores the current candidate universe without touching the portfolio
func (m *Manager) Rank(ctx context.Context) ([]contracts.RankedSymbol, *contracts.Universe, error) {
	universe, err := m.universe.Snapshot(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("universe snapshot: %w", err)
	}

	candidates := universe.Symbols(m.config.CandidateCount)
	if len(candidates) == 0 {
		return nil, nil, &contracts.InsufficientDataError{}
	}

	records, err := m.metrics.Collect(ctx, candidates)
	if err != nil {
		return nil, nil, err
	}

	ranked, err := m.ranker.Rank(ctx, records)
	if err != nil {
		return nil, nil, err
	}

	return ranked, universe, nil
}

// Create buys the top-ranked symbols with portfolioValue dollars.
// Fails with InvalidStateError when the portfolio already exists.
func (m *Manager) Create(ctx context.Context, portfolioValue decimal.Decimal) (*Report, error) {
	ctx, done := m.begin(ctx)
	defer done()

	if !portfolioValue.IsPositive() {
		return nil, &contracts.InvalidInputError{Field: "portfolio_value", Reason: "must be positive"}
	}
	if err := m.requireState(ctx, opCreate, StateUninitialized); err != nil {
		return nil, err
	}

	ranked, universe, err := m.Rank(ctx)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	targets, err := m.constructor.Build(ranked, universe, portfolioValue)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	date := m.today()
	holdings, positions := splitTargets(targets)
	orders := m.planner.Plan(date, nil, positions, nil)

	report := &Report{
		Operation: opCreate,
		Date:      date,
		Ranked:    ranked,
		Holdings:  holdings,
		Orders:    orders,
		Snapshot:  contracts.ValueSnapshot{Date: date, TotalValue: contracts.SumHoldingValues(holdings)},
	}

	if err := m.commit(ctx, report); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	return report, nil
}

// Update marks every holding to its latest close. Share counts do not change
// and no orders are written. A symbol without a price fails the whole update.
func (m *Manager) Update(ctx context.Context) (*Report, error) {
	ctx, done := m.begin(ctx)
	defer done()

	if err := m.requireState(ctx, opUpdate, StateActive); err != nil {
		return nil, err
	}

	holdings, err := m.store.Holdings(ctx)
	if err != nil {
		return nil, fmt.Errorf("update: read holdings: %w", err)
	}

	updated := make([]contracts.Holding, 0, len(holdings))
	if len(holdings) > 0 {
		symbols := make([]string, 0, len(holdings))
		for _, h := range holdings {
			symbols = append(symbols, h.Symbol)
		}

		series, err := m.prices.HistoricalPrices(ctx, symbols, contracts.PriceQuery{Range: m.config.UpdateRange})
		if err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}

		var missing []string
		for _, h := range holdings {
			closePrice, ok := series.LastClose(h.Symbol)
			if !ok {
				missing = append(missing, h.Symbol)
				continue
			}
			price := decimal.NewFromFloat(closePrice)
			updated = append(updated, contracts.Holding{
				Symbol:       h.Symbol,
				ShareCount:   h.ShareCount,
				HoldingValue: h.ShareCount.Mul(price).Round(moneyPlaces),
			})
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("update: %w", &contracts.ProviderError{
				Provider: "prices",
				Symbols:  missing,
				Err:      errors.New("no recent close"),
			})
		}
	}

	date := m.today()
	report := &Report{
		Operation: opUpdate,
		Date:      date,
		Holdings:  updated,
		Snapshot:  contracts.ValueSnapshot{Date: date, TotalValue: contracts.SumHoldingValues(updated)},
	}

	if err := m.commit(ctx, report); err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	return report, nil
}

// Rebalance redeploys the current value into the new top-ranked symbols.
// Held targets trade the difference, new targets are bought in full and
// symbols that fell out are sold in full.
func (m *Manager) Rebalance(ctx context.Context) (*Report, error) {
	ctx, done := m.begin(ctx)
	defer done()

	if err := m.requireState(ctx, opRebalance, StateActive); err != nil {
		return nil, err
	}

	latest, err := m.store.LatestValue(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebalance: read latest value: %w", err)
	}
	current, err := m.store.Holdings(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebalance: read holdings: %w", err)
	}

	ranked, universe, err := m.Rank(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebalance: %w", err)
	}

	targets, err := m.constructor.Build(ranked, universe, latest.TotalValue)
	if err != nil {
		return nil, fmt.Errorf("rebalance: %w", err)
	}

	date := m.today()
	holdings, positions := splitTargets(targets)
	orders := m.planner.Plan(date, current, positions, func(h contracts.Holding) decimal.Decimal {
		if p, ok := universe.PriceOf(h.Symbol); ok && p > 0 {
			return decimal.NewFromFloat(p)
		}
		return h.LastPrice()
	})

	report := &Report{
		Operation: opRebalance,
		Date:      date,
		Ranked:    ranked,
		Holdings:  holdings,
		Orders:    orders,
		Snapshot:  contracts.ValueSnapshot{Date: date, TotalValue: contracts.SumHoldingValues(holdings)},
	}

	if err := m.commit(ctx, report); err != nil {
		return nil, fmt.Errorf("rebalance: %w", err)
	}
	return report, nil
}

// Status returns the persisted portfolio
func (m *Manager) Status(ctx context.Context) (*contracts.Portfolio, error) {
	holdings, err := m.store.Holdings(ctx)
	if err != nil {
		return nil, fmt.Errorf("read holdings: %w", err)
	}
	orders, err := m.store.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("read orders: %w", err)
	}
	values, err := m.store.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}

	return &contracts.Portfolio{Holdings: holdings, Orders: orders, Values: values}, nil
}

// splitTargets derives the holding set and planner positions from constructor targets
func splitTargets(targets []Target) ([]contracts.Holding, []execution.TargetPosition) {
	holdings := make([]contracts.Holding, 0, len(targets))
	positions := make([]execution.TargetPosition, 0, len(targets))
	for _, t := range targets {
		holdings = append(holdings, t.Holding())
		positions = append(positions, execution.TargetPosition{Symbol: t.Symbol, Shares: t.Shares, Price: t.Price})
	}
	return holdings, positions
}

// commit writes the report as one atomic changeset
func (m *Manager) commit(ctx context.Context, report *Report) error {
	snapshot := report.Snapshot
	cs := contracts.Changeset{
		ReplaceHoldings: true,
		Holdings:        report.Holdings,
		Orders:          report.Orders,
		Snapshot:        &snapshot,
	}

	if err := m.store.Commit(ctx, cs); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	m.logger.WithFields(map[string]interface{}{
		"operation":     report.Operation,
		"holdings":      len(report.Holdings),
		"orders":        len(report.Orders),
		"total_value":   report.Snapshot.TotalValue.StringFixed(2),
		"strategy_hash": m.config.StrategyHash,
	}).Info("Portfolio operation committed")

	return nil
}
