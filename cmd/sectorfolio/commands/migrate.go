package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorfolio/internal/marketdata"
	"github.com/wonny/sectorfolio/internal/portfolio"
	"github.com/wonny/sectorfolio/pkg/config"
	"github.com/wonny/sectorfolio/pkg/database"
)

// migrateCmd creates the tables
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables",
	Long: `Creates historical_prices, sector_data and the purchase plan tables.
Statements are idempotent.

Example:
  go run ./cmd/sectorfolio migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := marketdata.EnsureSchema(ctx, db.Pool, portfolio.Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	PrintSuccess("Schema is up to date")
	return nil
}
