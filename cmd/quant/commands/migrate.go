package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quantfolio/pkg/config"
	"github.com/wonny/quantfolio/pkg/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "스키마 마이그레이션",
	Long: `포트폴리오 스키마(portfolio, order_history, portfolio_value)를 관리합니다.

Subcommands:
  up       - 스키마 적용 (이미 최신이면 아무것도 하지 않음)
  down     - 스키마 삭제 (--force 필요)
  version  - 적용된 마이그레이션 버전

Example:
  go run ./cmd/quant migrate up
  go run ./cmd/quant migrate version`,
}

var (
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "스키마 적용",
		RunE: withDatabaseURL(func(url string) error {
			if err := database.EnsureSchema(url); err != nil {
				return err
			}
			PrintSuccess("Schema is up to date")
			return nil
		}),
	}

	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "스키마 삭제",
		RunE: withDatabaseURL(func(url string) error {
			if !migrateForce {
				PrintWarning("This drops every portfolio table. Re-run with --force to continue.")
				return nil
			}
			if err := database.DropSchema(url); err != nil {
				return err
			}
			PrintSuccess("Schema dropped")
			return nil
		}),
	}

	migrateVersionCmd = &cobra.Command{
		Use:   "version",
		Short: "마이그레이션 버전",
		RunE: withDatabaseURL(func(url string) error {
			version, dirty, err := database.SchemaVersion(url)
			if err != nil {
				return err
			}
			fmt.Printf("Schema version: %d (dirty: %v)\n", version, dirty)
			return nil
		}),
	}
)

var migrateForce bool

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)

	// Flags
	migrateDownCmd.Flags().BoolVar(&migrateForce, "force", false, "confirm dropping the schema")
}

// withDatabaseURL loads config and hands DATABASE_URL to fn
func withDatabaseURL(fn func(url string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		fmt.Printf("Database: %s\n", maskPassword(cfg.Database.URL))
		return fn(cfg.Database.URL)
	}
}
