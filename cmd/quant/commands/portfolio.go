package commands

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wonny/quantfolio/internal/audit"
	"github.com/wonny/quantfolio/internal/portfolio"
)

var (
	createCmd = &cobra.Command{
		Use:   "create",
		Short: "포트폴리오 생성",
		Long: `후보군을 랭킹하고 상위 N개 종목을 동일 금액으로 매수합니다.

이미 포트폴리오가 존재하면 실패합니다.

Example:
  go run ./cmd/quant create
  go run ./cmd/quant create --value 100000`,
		RunE: runCreate,
	}

	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "보유 종목 시가 평가",
		Long: `보유 종목을 최신 종가로 평가하고 가치 스냅샷을 기록합니다.
주문은 발생하지 않습니다.

Example:
  go run ./cmd/quant update`,
		RunE: runPortfolioOp(func(ctx context.Context, m *portfolio.Manager) (*portfolio.Report, error) {
			return m.Update(ctx)
		}),
	}

	rebalanceCmd = &cobra.Command{
		Use:   "rebalance",
		Short: "리밸런싱",
		Long: `현재 가치를 기준으로 다시 랭킹하고 새 상위 N개 종목에 동일 금액으로 재배분합니다.
탈락 종목은 전량 매도 주문으로 기록됩니다.

Example:
  go run ./cmd/quant rebalance`,
		RunE: runPortfolioOp(func(ctx context.Context, m *portfolio.Manager) (*portfolio.Report, error) {
			return m.Rebalance(ctx)
		}),
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "포트폴리오 조회",
		Long: `저장된 보유 종목, 주문 내역, 가치 이력을 출력합니다.

Example:
  go run ./cmd/quant status
  go run ./cmd/quant status --orders
  go run ./cmd/quant status --period 3M`,
		RunE: runStatus,
	}
)

var (
	createValue  string
	statusOrders bool
	statusPeriod string
)

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(rebalanceCmd)
	rootCmd.AddCommand(statusCmd)

	// Flags
	createCmd.Flags().StringVar(&createValue, "value", "", "initial portfolio value (default: PORTFOLIO_INITIAL_VALUE)")
	statusCmd.Flags().BoolVar(&statusOrders, "orders", false, "show the full order log")
	statusCmd.Flags().StringVar(&statusPeriod, "period", "ALL", "performance window (1M|3M|6M|1Y|YTD|ALL)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	value := a.cfg.Portfolio.InitialValue
	if createValue != "" {
		value, err = decimal.NewFromString(createValue)
		if err != nil {
			return fmt.Errorf("invalid --value %q: %w", createValue, err)
		}
	}

	report, err := a.manager.Create(ctx, value)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintReport(report)
	PrintSuccess(fmt.Sprintf("Portfolio created with %d holdings", len(report.Holdings)))
	return nil
}

// runPortfolioOp wraps a state-changing manager call with app setup and report output
func runPortfolioOp(op func(context.Context, *portfolio.Manager) (*portfolio.Report, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := op(ctx, a.manager)
		if err != nil {
			PrintError(err.Error())
			return err
		}

		PrintReport(report)
		PrintSuccess(fmt.Sprintf("Portfolio %s complete", report.Operation))
		return nil
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.manager.State(ctx)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	if state == portfolio.StateUninitialized {
		PrintWarning("Portfolio has not been created yet. Run: go run ./cmd/quant create")
		return nil
	}

	p, err := a.manager.Status(ctx)
	if err != nil {
		return fmt.Errorf("read portfolio: %w", err)
	}

	PrintHeader("Portfolio Status",
		fmt.Sprintf("Strategy  : %s (%s)", a.strategy.Meta.StrategyID, a.strategyHash[:12]),
		fmt.Sprintf("Value     : %s", p.CurrentValue().StringFixed(2)),
		fmt.Sprintf("Orders    : %d", len(p.Orders)),
	)
	fmt.Println("\n[Holdings]")
	PrintHoldings(p.Holdings)
	fmt.Println("\n[Value History]")
	PrintValues(p.Values)

	perf, err := audit.NewAnalyzer(a.log).Analyze(statusPeriod, p.Values, p.Orders)
	if err != nil {
		PrintWarning(fmt.Sprintf("Performance unavailable: %v", err))
	} else {
		fmt.Println("\n[Performance]")
		PrintPerformance(perf)
	}
	if statusOrders {
		fmt.Println("\n[Orders]")
		PrintOrders(p.Orders)
	}
	fmt.Println()
	return nil
}
