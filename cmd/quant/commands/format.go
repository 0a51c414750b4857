package commands

import (
	"fmt"
	"strconv"

	"github.com/wonny/quantfolio/internal/audit"
	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/internal/portfolio"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a titled block header
func PrintHeader(title string, lines ...string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		PrintSeparator()
		for _, l := range lines {
			fmt.Printf("  %s\n", l)
		}
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	for i := 0; i < totalWidth; i++ {
		fmt.Print("─")
	}
	fmt.Println()
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintRanking prints ranked symbols with their per-metric percentiles
func PrintRanking(ranked []contracts.RankedSymbol) {
	widths := []int{5, 8, 10, 8, 8, 8}
	PrintTableHeader([]string{"RANK", "SYMBOL", "COMPOSITE", "P/B", "ROE", "MOM"}, widths)
	for _, r := range ranked {
		PrintTableRow([]string{
			strconv.Itoa(r.Rank),
			r.Symbol,
			fmt.Sprintf("%.2f", r.CompositeScore),
			fmt.Sprintf("%.2f", r.Scores.PriceToBook),
			fmt.Sprintf("%.2f", r.Scores.ReturnOnEquity),
			fmt.Sprintf("%.2f", r.Scores.MonthlyReturn),
		}, widths)
	}
}

// PrintHoldings prints the holding set and its total
func PrintHoldings(holdings []contracts.Holding) {
	widths := []int{8, 18, 14, 14}
	PrintTableHeader([]string{"SYMBOL", "SHARES", "PRICE", "VALUE"}, widths)
	for _, h := range holdings {
		PrintTableRow([]string{
			h.Symbol,
			h.ShareCount.StringFixed(6),
			h.LastPrice().StringFixed(2),
			h.HoldingValue.StringFixed(2),
		}, widths)
	}
	PrintSeparator()
	fmt.Printf("  Total: %s\n", contracts.SumHoldingValues(holdings).StringFixed(2))
}

// PrintOrders prints order log entries
func PrintOrders(orders []contracts.OrderRecord) {
	if len(orders) == 0 {
		PrintInfo("No orders")
		return
	}
	widths := []int{10, 8, 5, 18, 12}
	PrintTableHeader([]string{"DATE", "SYMBOL", "SIDE", "DELTA", "PRICE"}, widths)
	for _, o := range orders {
		PrintTableRow([]string{
			o.Date.Format(contracts.DateLayout),
			o.Symbol,
			string(o.Side()),
			o.SharesDelta.StringFixed(6),
			o.Price.StringFixed(2),
		}, widths)
	}
}

// PrintValues prints the value history
func PrintValues(values []contracts.ValueSnapshot) {
	widths := []int{10, 16}
	PrintTableHeader([]string{"DATE", "TOTAL VALUE"}, widths)
	for _, v := range values {
		PrintTableRow([]string{v.Date.Format(contracts.DateLayout), v.TotalValue.StringFixed(2)}, widths)
	}
}

// PrintReport prints what a create/update/rebalance wrote
func PrintReport(report *portfolio.Report) {
	PrintHeader(
		fmt.Sprintf("Portfolio %s", report.Operation),
		fmt.Sprintf("Date      : %s", report.Date.Format(contracts.DateLayout)),
		fmt.Sprintf("Value     : %s", report.Snapshot.TotalValue.StringFixed(2)),
	)
	if len(report.Ranked) > 0 {
		fmt.Println("\n[Ranking]")
		PrintRanking(report.Ranked)
	}
	fmt.Println("\n[Holdings]")
	PrintHoldings(report.Holdings)
	fmt.Println("\n[Orders]")
	PrintOrders(report.Orders)
	fmt.Println()
}

// PrintPerformance prints a performance report
func PrintPerformance(r *audit.PerformanceReport) {
	fmt.Printf("  Period       : %s (%s ~ %s, %d snapshots)\n", r.Period,
		r.StartDate.Format(contracts.DateLayout), r.EndDate.Format(contracts.DateLayout), r.Observations)
	fmt.Printf("  Value        : %s → %s\n", r.StartValue, r.EndValue)
	fmt.Printf("  Total Return : %+.2f%%\n", r.TotalReturn*100)
	fmt.Printf("  Annualized   : %+.2f%%\n", r.AnnualReturn*100)
	fmt.Printf("  Volatility   : %.2f%%\n", r.Volatility*100)
	fmt.Printf("  Sharpe       : %.2f\n", r.Sharpe)
	fmt.Printf("  Max Drawdown : %.2f%%\n", r.MaxDrawdown*100)
	fmt.Printf("  Orders       : %d (turnover %.2fx)\n", r.OrderCount, r.Turnover)
}
