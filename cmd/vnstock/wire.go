package main

import (
	"fmt"
	"os"
	"path/filepath"

	"vnstock/internal/config"
	"vnstock/internal/gather"
	"vnstock/internal/gather/vn"
	"vnstock/internal/store"
	"vnstock/internal/util"
)

// buildEngine wires the Vietcap fetcher, the parquet store and, for real
// runs, the SQLite ledger. The returned closer releases the ledger.
func buildEngine(cfg *config.Config, dryRun bool) (*gather.Engine, func(), error) {
	client := vn.NewClient(vn.ClientOpts{
		Timeout:      cfg.Source.Timeout,
		Headers:      cfg.Source.Headers,
		RateLimitMin: cfg.Source.RateLimitPerMin,
		Breaker: vn.BreakerConfig{
			Enabled:     cfg.Source.Breaker.Enabled,
			MaxFailures: cfg.Source.Breaker.MaxFailures,
			OpenTimeout: cfg.Source.Breaker.OpenTimeout,
		},
		Logger: logger,
	})
	fetcher := vn.NewCandleFetcher(client, cfg.Source.CandleURL, cfg.Source.TimeFrame, logger)
	pstore := store.NewParquetStore(cfg.Storage.DataDir, logger)

	opts := gather.EngineOpts{
		Throttle:     cfg.Gather.Throttle,
		IntervalDays: cfg.Gather.IntervalDays,
		Clock:        util.SystemClock{},
		Logger:       logger,
	}
	closer := func() {}

	// Dry runs never open the ledger: opening it creates the database file.
	if !dryRun && cfg.Storage.LedgerPath != "" {
		ledger, err := openLedger(cfg.Storage.LedgerPath)
		if err != nil {
			return nil, nil, err
		}
		opts.Ledger = ledger
		closer = func() {
			if err := ledger.Close(); err != nil {
				logger.Warn("close ledger", "err", err)
			}
		}
	}
	return gather.NewEngine(fetcher, pstore, opts), closer, nil
}

func openLedger(path string) (*store.SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	ledger, err := store.NewSQLiteLedger(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return ledger, nil
}
