package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/ingestion"
	"solana-token-sale/internal/solana"
)

var watchOpts struct {
	rpc         string
	ws          string
	program     string
	sale        string
	store       string
	postgresDSN string
	metricsAddr string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Mirror a deployed sale and stream its account updates",
	Long: `Backfills the sale, its participant records and (after TGE) its mint and vault
into storage, then keeps them current from account and program subscriptions
until interrupted. Participants that join later and the mint and vault set at
TGE are picked up without a restart. Progress is stored per account so a restarted watcher skips
updates it already applied.`,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchOpts.rpc, "rpc", "", "Solana RPC HTTP endpoint (env SOLANA_RPC_URL)")
	f.StringVar(&watchOpts.ws, "ws", "", "Solana WebSocket endpoint (env SOLANA_WS_URL)")
	f.StringVar(&watchOpts.program, "program", "", "Sale program ID (env TOKENSALE_PROGRAM_ID)")
	f.StringVar(&watchOpts.sale, "sale", "", "Sale account address (required)")
	f.StringVar(&watchOpts.store, "store", "memory", "Mirror storage: memory or postgres (env TOKENSALE_STORE)")
	f.StringVar(&watchOpts.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string (env POSTGRES_DSN)")
	f.StringVar(&watchOpts.metricsAddr, "metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd, "watch")
	endpoint := envString(cmd, "rpc", "SOLANA_RPC_URL")
	wsEndpoint := envString(cmd, "ws", "SOLANA_WS_URL")
	if endpoint == "" || wsEndpoint == "" {
		return fmt.Errorf("--rpc and --ws (or SOLANA_RPC_URL and SOLANA_WS_URL) are required")
	}
	program, err := requireKey("program", envString(cmd, "program", "TOKENSALE_PROGRAM_ID"))
	if err != nil {
		return err
	}
	sale, err := requireKey("sale", watchOpts.sale)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	metrics, reg := newMetrics()
	srv := startMetricsServer(watchOpts.metricsAddr, reg, logger)
	defer stopMetricsServer(srv, logger)

	st, err := openStores(ctx, storeConfig{
		Backend:     envString(cmd, "store", "TOKENSALE_STORE"),
		PostgresDSN: envString(cmd, "postgres-dsn", "POSTGRES_DSN"),
	}, metrics, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	wsCfg := solana.DefaultWSConfig()
	wsCfg.Logger = logger
	ws, err := solana.NewWSClient(ctx, wsEndpoint, &wsCfg)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	syncer := ingestion.NewSyncer(ingestion.SyncerOptions{
		RPC:      solana.NewHTTPClient(endpoint, solana.WithLatencyRecorder(metrics)),
		WS:       ws,
		Accounts: st.accounts,
		Progress: st.progress,
		Recorder: metrics,
		Logger:   logger,
	})
	keys, err := syncer.Backfill(ctx, program, sale)
	if err != nil {
		return err
	}
	logger.Printf("Mirrored %d accounts, watching for updates", len(keys))

	out := cmd.OutOrStdout()
	err = syncer.Watch(ctx, program, sale, func(n solana.AccountNotification) {
		fmt.Fprintln(out, describeUpdate(n))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Println("Shutdown complete")
	return nil
}

// describeUpdate renders one applied account update as a single line.
func describeUpdate(n solana.AccountNotification) string {
	prefix := fmt.Sprintf("slot=%d %s %s", n.Slot, ingestion.AccountKind(n.Account), n.Key)
	acc := n.Account

	switch {
	case acc.Owner == solana.TokenProgramID:
		if ta, err := solana.DecodeTokenAccount(acc.Data); err == nil {
			return fmt.Sprintf("%s amount=%d", prefix, ta.Amount)
		}
	case len(acc.Data) == domain.SaleSize:
		if s, err := domain.DecodeSale(acc.Data); err == nil {
			tge := "unset"
			if phase, ok := s.TGE(); ok {
				tge = fmt.Sprintf("%d", phase.TGE)
			}
			return fmt.Sprintf("%s remaining=%d tge=%s", prefix, s.TotalRemaining, tge)
		}
	case len(acc.Data) == domain.ParticipantSize:
		if p, err := domain.DecodeParticipant(acc.Data); err == nil {
			return fmt.Sprintf("%s owner=%s purchased=%d claimed=%d", prefix, p.Owner, p.Purchased, p.Claimed)
		}
	}
	return prefix
}
