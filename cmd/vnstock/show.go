package main

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vnstock/internal/contract"
	"vnstock/internal/domain"
	"vnstock/internal/store"
	"vnstock/internal/util"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a stored partition",
	Long: `Reads the partition of --symbol on --date back from the data dir.
Rolling instruments are resolved to the contract active on that date.

Example:
  vnstock show --symbol VN30F --date 20250605 --rows 5`,
	RunE: runShow,
}

var (
	showSymbol string
	showDate   string
	showRows   int
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showSymbol, "symbol", "", "configured instrument symbol")
	showCmd.Flags().StringVar(&showDate, "date", "", "trading date YYYYMMDD")
	showCmd.Flags().IntVar(&showRows, "rows", 10, "rows to print (0 = all)")
	_ = showCmd.MarkFlagRequired("symbol")
	_ = showCmd.MarkFlagRequired("date")
}

func runShow(cmd *cobra.Command, _ []string) error {
	inst, err := cfg.Instrument(showSymbol)
	if err != nil {
		return err
	}
	day, err := util.ParseDate(showDate)
	if err != nil {
		return err
	}
	prefix, err := outputPrefix(inst, day)
	if err != nil {
		return err
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir, logger)
	frame, err := pstore.ReadPartition(cmd.Context(), prefix, day)
	if err != nil {
		return err
	}
	printFrame(cmd.OutOrStdout(), frame, showRows)
	return nil
}

// outputPrefix is the store prefix the planner would use for inst on day.
func outputPrefix(inst domain.Instrument, day time.Time) (string, error) {
	if inst.Kind != domain.KindRolling {
		return inst.Symbol, nil
	}
	ticker, err := contract.NewResolver(inst).SymbolAt(day)
	if err != nil {
		return "", err
	}
	return path.Join(inst.Symbol, ticker), nil
}

func printFrame(w io.Writer, f *domain.Frame, limit int) {
	cols := f.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))

	n := f.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	cells := make([]string, len(cols))
	for r := 0; r < n; r++ {
		for i, c := range cols {
			cells[i] = formatCell(c.Values[r])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	fmt.Fprintf(w, "(%d of %d rows)\n", n, f.Len())
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return x.In(util.Location).Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}
