package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	env          string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "S&P 500 value+momentum 랭킹과 모의 포트폴리오",
	Long: `Quantfolio Unified CLI

S&P 500 후보 종목을 P/B, ROE, 월간 모멘텀 백분위로 랭킹하고
상위 N개 종목을 동일 비중으로 보유하는 모의 포트폴리오를 관리합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant create --value 100000
  go run ./cmd/quant update
  go run ./cmd/quant rebalance
  go run ./cmd/quant status
  go run ./cmd/quant rank --limit 25`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyGlobalFlags()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML file (default: STRATEGY_FILE or built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// applyGlobalFlags pushes flag overrides into the environment read by config.Load
func applyGlobalFlags() {
	if env != "" {
		_ = os.Setenv("ENV", env)
	}
	if strategyFile != "" {
		_ = os.Setenv("STRATEGY_FILE", strategyFile)
	}
	if verbose {
		_ = os.Setenv("LOG_LEVEL", "debug")
	}
}
