package migrations

import (
	"context"
	"fmt"

	"solana-token-sale/internal/storage/postgres"
)

// RunPostgresMigrations creates the accounts, sale_activities and
// sync_progress tables. Every script uses IF NOT EXISTS, so running it
// against an up-to-date database changes nothing.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	list, err := scripts("postgres")
	if err != nil {
		return err
	}
	for _, sc := range list {
		// pgx runs a multi-statement script as one simple-protocol batch.
		if _, err := pool.Exec(ctx, sc.body); err != nil {
			return fmt.Errorf("postgres schema %s: %w", sc.name, err)
		}
	}
	return nil
}
