package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quantfolio/internal/selection"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "후보군 랭킹 출력",
	Long: `현재 지수 비중 상위 후보군을 P/B, ROE, 월간 모멘텀 백분위로 랭킹합니다.
포트폴리오는 변경하지 않습니다.

Example:
  go run ./cmd/quant rank
  go run ./cmd/quant rank --limit 10`,
	RunE: runRank,
}

var rankLimit int

func init() {
	rootCmd.AddCommand(rankCmd)

	// Flags
	rankCmd.Flags().IntVar(&rankLimit, "limit", 0, "print only the first N ranks (0 = all)")
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ranked, universe, err := a.manager.Rank(ctx)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintHeader("Candidate Ranking",
		fmt.Sprintf("Universe  : %d constituents (as of %s)", len(universe.Entries), universe.AsOf.Format("2006-01-02 15:04")),
		fmt.Sprintf("Candidates: %d, ranked: %d", a.strategy.Universe.CandidateCount, len(ranked)),
		fmt.Sprintf("Top %d     : %v", a.strategy.Portfolio.TopN, selection.TopSymbols(ranked, a.strategy.Portfolio.TopN)),
	)

	if rankLimit > 0 && rankLimit < len(ranked) {
		ranked = ranked[:rankLimit]
	}
	PrintRanking(ranked)
	fmt.Println()
	return nil
}
