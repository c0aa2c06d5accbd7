package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"solana-token-sale/internal/reporting"
	"solana-token-sale/internal/vesting"
)

var scheduleOpts struct {
	tge       int64
	upfront   uint64
	months    uint64
	decimals  uint8
	purchased uint64
	claimed   uint64
	at        int64
	formula   string
	format    string
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Project a vesting schedule without a sale",
	Long: `Computes the unlock table and claimable amount for a purchase under the given
vesting parameters. Nothing is fetched; use it to check sale parameters before
deploying or to explain a participant's position.`,
	RunE: runSchedule,
}

func init() {
	f := scheduleCmd.Flags()
	f.Int64Var(&scheduleOpts.tge, "tge", 0, "TGE in unix seconds (required)")
	f.Uint64Var(&scheduleOpts.upfront, "upfront", 0, "Upfront percent released at TGE (0..100)")
	f.Uint64Var(&scheduleOpts.months, "months", 0, "Number of monthly tranches for the remainder")
	f.Uint8Var(&scheduleOpts.decimals, "decimals", 0, "Sale mint decimals")
	f.Uint64Var(&scheduleOpts.purchased, "purchased", 0, "Purchased units (required)")
	f.Uint64Var(&scheduleOpts.claimed, "claimed", 0, "Units already claimed")
	f.Int64Var(&scheduleOpts.at, "at", 0, "Position time in unix seconds (default: TGE)")
	f.StringVar(&scheduleOpts.formula, "formula", "reference", "Vesting formula: reference or unit-consistent")
	f.StringVar(&scheduleOpts.format, "format", "md", "Output format: md or csv")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("tge") {
		return fmt.Errorf("--tge is required")
	}
	if scheduleOpts.purchased == 0 {
		return fmt.Errorf("--purchased must be positive")
	}
	if scheduleOpts.upfront > 100 {
		return fmt.Errorf("--upfront %d above 100", scheduleOpts.upfront)
	}
	if scheduleOpts.claimed > scheduleOpts.purchased {
		return fmt.Errorf("--claimed %d exceeds --purchased %d", scheduleOpts.claimed, scheduleOpts.purchased)
	}
	formula, err := vesting.ParseFormula(scheduleOpts.formula)
	if err != nil {
		return err
	}

	at := scheduleOpts.at
	if !cmd.Flags().Changed("at") {
		at = scheduleOpts.tge
	}
	s := vesting.Schedule{
		TGE:            scheduleOpts.tge,
		UpfrontPercent: scheduleOpts.upfront,
		VestingMonths:  scheduleOpts.months,
		TokenScale:     scheduleOpts.decimals,
		Formula:        formula,
	}
	r, err := reporting.Build(s, true, scheduleOpts.purchased, scheduleOpts.claimed, at)
	if err != nil {
		return err
	}

	switch scheduleOpts.format {
	case "md":
		fmt.Fprint(cmd.OutOrStdout(), reporting.RenderMarkdown(r))
	case "csv":
		fmt.Fprint(cmd.OutOrStdout(), reporting.RenderCSV(r))
	default:
		return fmt.Errorf("unknown format %q (want md or csv)", scheduleOpts.format)
	}
	return nil
}
