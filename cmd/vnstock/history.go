package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vnstock/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the ledger",
	Long: `Prints the most recent non-dry runs recorded in the SQLite ledger.
With --run, prints the per-item outcomes of one run instead.`,
	RunE: runHistory,
}

var (
	historyLimit int
	historyRun   string
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show the items of one run id")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if cfg.Storage.LedgerPath == "" {
		return fmt.Errorf("storage.ledger_path is not configured")
	}
	ledger, err := store.OpenSQLiteLedgerReadOnly(cfg.Storage.LedgerPath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if historyRun != "" {
		items, err := ledger.ListItems(ctx, historyRun)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-12s %-10s %8s %5s  %s\n", "SYMBOL", "DATE", "ROWS", "PARTS", "ERROR")
		for _, it := range items {
			fmt.Fprintf(out, "%-12s %-10s %8d %5d  %s\n", it.Symbol, it.StockDate, it.Rows, it.Partitions, it.Error)
		}
		return nil
	}

	runs, err := ledger.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%-36s %-8s %-10s %-10s %-22s %5s %5s  %s\n",
		"RUN", "SYMBOL", "FROM", "TO", "STATUS", "ITEMS", "FAIL", "STARTED")
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s %-8s %-10s %-10s %-22s %5d %5d  %s\n",
			r.RunID, r.Instrument, r.From, r.To, r.Status, r.Items, r.Failures,
			r.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
