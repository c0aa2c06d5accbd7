package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"solana-token-sale/internal/simulation"
)

var simulateOpts struct {
	scenario      string
	store         string
	postgresDSN   string
	clickhouseDSN string
	metricsAddr   string
	keySeed       string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a sale scenario against the local ledger",
	Long: `Runs a TOML scenario: creates the sale and investor accounts, executes every
step against the local ledger and verifies the resulting state. Exits non-zero
when any step's outcome differs from its expectation or verification fails.`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simulateOpts.scenario, "scenario", "", "Scenario TOML file (required)")
	f.StringVar(&simulateOpts.store, "store", "memory", "Account and activity storage: memory or postgres (env TOKENSALE_STORE)")
	f.StringVar(&simulateOpts.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string (env POSTGRES_DSN)")
	f.StringVar(&simulateOpts.clickhouseDSN, "clickhouse-dsn", "", "Store the activity log in ClickHouse (env CLICKHOUSE_DSN)")
	f.StringVar(&simulateOpts.metricsAddr, "metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	f.StringVar(&simulateOpts.keySeed, "key-seed", "", "Address namespace; defaults to the run ID for persistent stores")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd, "simulate")
	if simulateOpts.scenario == "" {
		return fmt.Errorf("--scenario is required")
	}
	sc, err := simulation.LoadScenario(simulateOpts.scenario)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	metrics, reg := newMetrics()
	srv := startMetricsServer(simulateOpts.metricsAddr, reg, logger)
	defer stopMetricsServer(srv, logger)

	cfg := storeConfig{
		Backend:       envString(cmd, "store", "TOKENSALE_STORE"),
		PostgresDSN:   envString(cmd, "postgres-dsn", "POSTGRES_DSN"),
		ClickhouseDSN: envString(cmd, "clickhouse-dsn", "CLICKHOUSE_DSN"),
	}
	st, err := openStores(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	runID := uuid.New().String()
	seed := simulateOpts.keySeed
	if seed == "" && cfg.Backend == "postgres" {
		// Persistent stores keep earlier runs; fresh addresses avoid collisions.
		seed = runID
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		Accounts:   st.accounts,
		Activities: st.activities,
		RunID:      runID,
		KeySeed:    seed,
		Observer:   metrics,
		Recorder:   metrics,
		Logger:     logger,
	})
	res, err := runner.Run(ctx, sc)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	printSimulation(cmd.OutOrStdout(), sc, res)

	if n := res.Unexpected(); n > 0 {
		return fmt.Errorf("%d unexpected step outcomes", n)
	}
	if res.Verification != nil && !res.Verification.OK() {
		return fmt.Errorf("verification found %d divergences", len(res.Verification.Divergences))
	}
	return nil
}

func printSimulation(w io.Writer, sc *simulation.Scenario, res *simulation.Result) {
	fmt.Fprintf(w, "Scenario: %s\n", sc.Name)
	fmt.Fprintf(w, "Run:      %s\n", res.RunID)
	fmt.Fprintf(w, "Program:  %s\n", res.Program)
	fmt.Fprintf(w, "Sale:     %s\n\n", res.Sale)

	fmt.Fprintln(w, "Steps:")
	for _, s := range res.Steps {
		var units string
		if s.Receipt != nil {
			units = fmt.Sprintf(" units=%d", s.Receipt.Units)
		}
		mark := "ok"
		if s.Unexpected {
			mark = "UNEXPECTED"
		}
		fmt.Fprintf(w, "  %3d t=%d %-15s %-10s %-22s%s [%s]", s.Index, s.Time, s.Action, s.Investor, s.ErrName(), units, mark)
		if s.Unexpected {
			fmt.Fprintf(w, " %s", s.Detail)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nInvestors:")
	for _, b := range res.Investors {
		fmt.Fprintf(w, "  %-10s purchased=%d claimed=%d tokens=%d payment=%d\n", b.Name, b.Purchased, b.Claimed, b.Tokens, b.Payment)
	}
	fmt.Fprintf(w, "\nRaised: %d\nVault:  %d\n", res.Raised, res.VaultBalance)

	if v := res.Verification; v != nil {
		fmt.Fprintf(w, "\nVerification: %d participants, sold %d, claimed %d\n", v.Participants, v.Sold, v.Claimed)
		for _, d := range v.Divergences {
			fmt.Fprintf(w, "  DIVERGENCE %s\n", d)
		}
		if v.OK() {
			fmt.Fprintln(w, "  consistent")
		}
	}
	fmt.Fprintf(w, "\nUnexpected outcomes: %d\n", res.Unexpected())
}
