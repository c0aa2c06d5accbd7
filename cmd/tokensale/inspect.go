package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/ingestion"
	"solana-token-sale/internal/reporting"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
	"solana-token-sale/internal/storage/memory"
	"solana-token-sale/internal/verification"
	"solana-token-sale/internal/vesting"
)

var inspectOpts struct {
	rpc      string
	program  string
	sale     string
	investor string
	at       int64
	format   string
	formula  string
	uncapped bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Fetch a deployed sale and report its state",
	Long: `Fetches the sale account and its participant records from a cluster, checks
them for consistency and prints the sale. With --investor it also prints that
investor's vesting report at the cluster time (or --at).`,
	RunE: runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectOpts.rpc, "rpc", "", "Solana RPC HTTP endpoint (env SOLANA_RPC_URL)")
	f.StringVar(&inspectOpts.program, "program", "", "Sale program ID (env TOKENSALE_PROGRAM_ID)")
	f.StringVar(&inspectOpts.sale, "sale", "", "Sale account address (required)")
	f.StringVar(&inspectOpts.investor, "investor", "", "Investor wallet to report on")
	f.Int64Var(&inspectOpts.at, "at", 0, "Report time in unix seconds (default: cluster time)")
	f.StringVar(&inspectOpts.format, "format", "md", "Investor report format: md or csv")
	f.StringVar(&inspectOpts.formula, "formula", "reference", "Vesting formula: reference or unit-consistent")
	f.BoolVar(&inspectOpts.uncapped, "uncapped-deposits", false, "Sale accepts deposits past its allocation (skips the sold capacity check)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd, "inspect")
	endpoint := envString(cmd, "rpc", "SOLANA_RPC_URL")
	if endpoint == "" {
		return fmt.Errorf("--rpc or SOLANA_RPC_URL is required")
	}
	program, err := requireKey("program", envString(cmd, "program", "TOKENSALE_PROGRAM_ID"))
	if err != nil {
		return err
	}
	sale, err := requireKey("sale", inspectOpts.sale)
	if err != nil {
		return err
	}
	formula, err := vesting.ParseFormula(inspectOpts.formula)
	if err != nil {
		return err
	}
	if inspectOpts.format != "md" && inspectOpts.format != "csv" {
		return fmt.Errorf("unknown format %q (want md or csv)", inspectOpts.format)
	}
	var investor solana.PublicKey
	if inspectOpts.investor != "" {
		if investor, err = requireKey("investor", inspectOpts.investor); err != nil {
			return err
		}
	}

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	metrics, _ := newMetrics()
	rpc := solana.NewHTTPClient(endpoint, solana.WithLatencyRecorder(metrics))
	accounts := memory.NewAccountStore()
	syncer := ingestion.NewSyncer(ingestion.SyncerOptions{
		RPC:      rpc,
		Accounts: accounts,
		Progress: memory.NewSyncProgressStore(),
		Recorder: metrics,
		Logger:   logger,
	})
	if _, err := syncer.Backfill(ctx, program, sale); err != nil {
		return err
	}

	at := inspectOpts.at
	if at == 0 {
		if at, err = solana.ClusterTime(ctx, rpc); err != nil {
			return fmt.Errorf("cluster time: %w", err)
		}
	}
	return inspect(ctx, cmd.OutOrStdout(), inspectRequest{
		program:  program,
		sale:     sale,
		investor: investor,
		formula:  formula,
		format:   inspectOpts.format,
		at:       at,
		uncapped: inspectOpts.uncapped,
	}, accounts)
}

type inspectRequest struct {
	program  solana.PublicKey
	sale     solana.PublicKey
	investor solana.PublicKey // zero skips the investor report
	formula  vesting.Formula
	format   string
	at       int64
	uncapped bool
}

// inspect renders the mirrored sale, its verification and the optional
// investor report.
func inspect(ctx context.Context, w io.Writer, req inspectRequest, accounts storage.AccountStore) error {
	program, sale := req.program, req.sale
	saleAcc, err := accounts.Get(ctx, sale)
	if err != nil {
		return fmt.Errorf("load sale %s: %w", sale, err)
	}
	rec, err := domain.DecodeSale(saleAcc.Data)
	if err != nil {
		return err
	}
	printSale(w, sale, rec)

	verifier := verification.NewVerifier(program, accounts, nil)
	if req.uncapped {
		verifier = verifier.WithUncappedDeposits()
	}
	report, err := verifier.VerifySale(ctx, sale)
	if err != nil {
		return fmt.Errorf("verify sale: %w", err)
	}
	fmt.Fprintf(w, "\n## Verification\n\n")
	fmt.Fprintf(w, "Participants: %d, purchased %d, claimed %d, vault %d\n", report.Participants, report.Purchased, report.Claimed, report.VaultBalance)
	for _, d := range report.Divergences {
		fmt.Fprintf(w, "- DIVERGENCE %s\n", d)
	}
	if report.OK() {
		fmt.Fprintln(w, "Consistent.")
	}

	if req.investor.IsZero() {
		return nil
	}
	r, err := reporting.NewGenerator(program, accounts, nil).WithFormula(req.formula).Generate(ctx, sale, req.investor, req.at)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	if req.format == "csv" {
		fmt.Fprint(w, reporting.RenderCSV(r))
	} else {
		fmt.Fprint(w, reporting.RenderMarkdown(r))
	}
	return nil
}

func printSale(w io.Writer, key solana.PublicKey, s *domain.Sale) {
	c := s.Config
	fmt.Fprintf(w, "# Sale %s\n\n", key)
	fmt.Fprintf(w, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(w, "| Admin | %s |\n", c.Admin)
	fmt.Fprintf(w, "| Payment mint | %s |\n", c.PaymentMint)
	fmt.Fprintf(w, "| Payment destination | %s |\n", c.PaymentDestination)
	fmt.Fprintf(w, "| Exchange rate | %d |\n", c.ExchangeRate)
	fmt.Fprintf(w, "| Window | %s .. %s |\n", unixUTC(c.SaleStart), unixUTC(c.SaleEnd))
	fmt.Fprintf(w, "| Upfront | %d%% |\n", c.UpfrontPercent)
	fmt.Fprintf(w, "| Vesting months | %d |\n", c.VestingMonths)
	fmt.Fprintf(w, "| Minimum deposit | %d |\n", c.MinDeposit)
	fmt.Fprintf(w, "| Allocated | %d |\n", c.TotalAllocated)
	fmt.Fprintf(w, "| Remaining | %d |\n", s.TotalRemaining)
	if phase, ok := s.TGE(); ok {
		fmt.Fprintf(w, "| TGE | %s |\n", unixUTC(phase.TGE))
		fmt.Fprintf(w, "| Sale mint | %s |\n", phase.SaleMint)
		fmt.Fprintf(w, "| Sale vault | %s |\n", phase.SaleVault)
	} else {
		fmt.Fprintf(w, "| TGE | not set |\n")
	}
}

func unixUTC(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
