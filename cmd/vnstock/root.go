package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vnstock/internal/config"
	"vnstock/internal/util"
)

const defaultConfigPath = "config/vnstock.yaml"

var (
	// Global flags
	configFile string

	cfg     *config.Config
	logger  *slog.Logger
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "vnstock",
	Short: "Incremental minute-candle acquisition for VN30 and VN30F futures",
	Long: `vnstock fetches minute candles from the Vietcap chart API and stores
one parquet partition per symbol and trading date:

  {data_dir}/{symbol}/stock_date=YYYY-MM-DD/00000000.parquet

Rolling futures (VN30F) are resolved to the contract active on each date and
written under {data_dir}/VN30F/{ticker}/.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $VNSTOCK_CONFIG or "+defaultConfigPath+")")
}

// setup loads the configuration and builds the logger shared by every command.
func setup(cmd *cobra.Command, _ []string) error {
	path, explicit := configFile, configFile != ""
	if !explicit {
		if p := os.Getenv("VNSTOCK_CONFIG"); p != "" {
			path, explicit = p, true
		} else {
			path = defaultConfigPath
		}
	}

	var err error
	cfg, err = config.Load(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		cfg, err = config.Load("")
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Dual logger: stdout + dated file under log_dir. Dry runs stay on stdout.
	var w io.Writer = os.Stdout
	dryRun, _ := cmd.Flags().GetBool("dry_run")
	if cfg.Storage.LogDir != "" && !dryRun {
		if err := os.MkdirAll(cfg.Storage.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		name := filepath.Join(cfg.Storage.LogDir, fmt.Sprintf("vnstock-%s.log", util.LocalNow().Format("2006-01-02")))
		logFile, err = os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, logFile)
	}
	logger = util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, w)
	slog.SetDefault(logger)
	return nil
}

func teardown(*cobra.Command, []string) error {
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}
