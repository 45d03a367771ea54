package main

import (
	"github.com/spf13/cobra"

	"vnstock/internal/domain"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Acquire a date window for one configured instrument",
	Long: `Plans every trading date in [--from, --to] for --symbol and replaces
the matching partitions. Rolling instruments walk the contract months covering
the window, so a backfill across an expiry writes under both tickers. Without
--to a rolling backfill runs through the expiry of the contract active on
--from.

Example:
  vnstock backfill --symbol VN30F --from 20250601 --to 20250630
  vnstock backfill --symbol VN30 --from 20250605 --dry_run`,
	RunE: runBackfill,
}

var (
	backfillSymbol string
	backfillFrom   string
	backfillTo     string
	backfillDryRun bool
)

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().StringVar(&backfillSymbol, "symbol", "", "configured instrument symbol, e.g. VN30F")
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "first date YYYYMMDD")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "last date YYYYMMDD (default: --from for plain symbols, the active contract's expiry for rolling ones)")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry_run", false, "fetch and log without touching the data dir")
	_ = backfillCmd.MarkFlagRequired("symbol")
	_ = backfillCmd.MarkFlagRequired("from")
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	inst, err := cfg.Instrument(backfillSymbol)
	if err != nil {
		return err
	}

	engine, closeEngine, err := buildEngine(cfg, backfillDryRun)
	if err != nil {
		return err
	}
	defer closeEngine()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	report, err := engine.Run(ctx, inst, backfillFrom, backfillTo, backfillDryRun)
	printReports(cmd.OutOrStdout(), []*domain.RunReport{report})
	return err
}
