package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"solana-token-sale/internal/storage/migrations"
	pgstore "solana-token-sale/internal/storage/postgres"
)

var migrateOpts struct {
	postgresDSN   string
	clickhouseDSN string
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd, "migrate")
		pgDSN := envString(cmd, "postgres-dsn", "POSTGRES_DSN")
		chDSN := envString(cmd, "clickhouse-dsn", "CLICKHOUSE_DSN")
		if pgDSN == "" && chDSN == "" {
			return fmt.Errorf("nothing to migrate: set --postgres-dsn or --clickhouse-dsn")
		}
		ctx := cmd.Context()

		if pgDSN != "" {
			pool, err := pgstore.NewPool(ctx, pgDSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				return fmt.Errorf("postgres migrations: %w", err)
			}
			logger.Println("PostgreSQL migrations applied")
		}

		if chDSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, chDSN)
			if err != nil {
				return fmt.Errorf("clickhouse migrations: %w", err)
			}
			defer conn.Close()
			logger.Println("ClickHouse migrations applied")
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateOpts.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string (env POSTGRES_DSN)")
	migrateCmd.Flags().StringVar(&migrateOpts.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string (env CLICKHOUSE_DSN)")
	rootCmd.AddCommand(migrateCmd)
}
