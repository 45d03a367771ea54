package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vnstock/internal/domain"
	"vnstock/internal/gather"
	"vnstock/internal/util"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Acquire one trading date for every configured instrument",
	Long: `Fetches --run_dttm (default: today in UTC+7) for each configured
instrument and replaces its partitions. Item failures are logged and do not
change the exit code; only planning errors (for example a malformed date) do.

Example:
  vnstock run
  vnstock run --run_dttm 20250605 --dry_run`,
	RunE: runRun,
}

var (
	runDttm   string
	runDryRun bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDttm, "run_dttm", "", "trading date YYYYMMDD (default today, UTC+7)")
	runCmd.Flags().BoolVar(&runDryRun, "dry_run", false, "fetch and log without touching the data dir")
}

func runRun(cmd *cobra.Command, _ []string) error {
	if runDttm == "" {
		runDttm = util.LocalNow().Format(util.DateLayout)
	}
	insts, err := cfg.Instruments()
	if err != nil {
		return err
	}

	engine, closeEngine, err := buildEngine(cfg, runDryRun)
	if err != nil {
		return err
	}
	defer closeEngine()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	job := gather.NewDailyJob(engine, insts, util.SystemClock{}, runDryRun, logger)
	reports, err := job.RunDate(ctx, runDttm)
	printReports(cmd.OutOrStdout(), reports)
	return err
}

func printReports(w io.Writer, reports []*domain.RunReport) {
	for _, r := range reports {
		if r == nil {
			continue
		}
		rows := 0
		for _, it := range r.Items {
			rows += it.Rows
		}
		fmt.Fprintf(w, "%-8s %-22s items=%d failures=%d rows=%d\n",
			r.Instrument.Symbol, r.Status, len(r.Items), len(r.Failures()), rows)
		for _, f := range r.Failures() {
			fmt.Fprintf(w, "  %s %s: %v\n", f.Item.Symbol, f.Item.Date.Format("2006-01-02"), f.Err)
		}
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
