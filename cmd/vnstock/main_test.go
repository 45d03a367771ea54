package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnstock/internal/domain"
	"vnstock/internal/util"
)

// 2025-06-05 09:00 and 09:01 UTC+7.
const upstreamBody = `[{"symbol":"VN30","t":["1749088800","1749088860"],"c":[1360.5,1361.25],"v":[1200,800]}]`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestBackfillShowHistory(t *testing.T) {
	for _, k := range []string{"VNSTOCK_CONFIG", "VNSTOCK_DATA_DIR", "VNSTOCK_LEDGER_PATH", "VNSTOCK_CANDLE_URL", "VNSTOCK_LOG_LEVEL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(upstreamBody))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	cfgPath := filepath.Join(dir, "vnstock.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
storage:
  data_dir: %q
  ledger_path: %q
  log_dir: ""
source:
  candle_url: %q
logging:
  level: error
gather:
  throttle: 0s
`, dataDir, filepath.Join(dir, "ledger.db"), srv.URL)), 0o644))

	// Dry run: upstream is called, nothing lands on disk.
	_, err := execute(t, "--config", cfgPath, "backfill", "--symbol", "VN30", "--from", "20250605", "--to", "20250605", "--dry_run")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	_, statErr := os.Stat(dataDir)
	assert.True(t, os.IsNotExist(statErr), "dry run created %s", dataDir)
	_, statErr = os.Stat(filepath.Join(dir, "ledger.db"))
	assert.True(t, os.IsNotExist(statErr), "dry run opened the ledger")

	out, err := execute(t, "--config", cfgPath, "backfill", "--symbol", "VN30", "--from", "20250605", "--to", "20250605", "--dry_run=false")
	require.NoError(t, err)
	assert.Contains(t, out, string(domain.RunCompleted))
	assert.FileExists(t, filepath.Join(dataDir, "VN30", "stock_date=2025-06-05", "00000000.parquet"))

	out, err = execute(t, "--config", cfgPath, "show", "--symbol", "VN30", "--date", "20250605", "--rows", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-06-05 09:01:00")
	assert.Contains(t, out, "(2 of 2 rows)")

	out, err = execute(t, "--config", cfgPath, "history", "--limit", "5")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, out)
	assert.Contains(t, lines[1], "VN30")

	// A malformed date is a planning error and fails the command.
	_, err = execute(t, "--config", cfgPath, "backfill", "--symbol", "VN30", "--from", "2025-06-05", "--to", "", "--dry_run")
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestOutputPrefix(t *testing.T) {
	day := util.Date(2025, time.June, 20)
	got, err := outputPrefix(domain.Rolling("VN30F", "41I1"), day)
	require.NoError(t, err)
	assert.Equal(t, "VN30F/41I1F7000", got)

	got, err = outputPrefix(domain.Plain("VN30"), day)
	require.NoError(t, err)
	assert.Equal(t, "VN30", got)
}

func TestPrintFrame(t *testing.T) {
	f := domain.NewFrame(3)
	require.NoError(t, f.Set("c", []any{1.5, nil, 2.0}))
	var buf bytes.Buffer
	printFrame(&buf, f, 2)
	assert.Equal(t, "c\n1.5\nnull\n(2 of 3 rows)\n", buf.String())
}

func TestReadOnlyCommandsLeaveLedgerAlone(t *testing.T) {
	for _, k := range []string{"VNSTOCK_CONFIG", "VNSTOCK_DATA_DIR", "VNSTOCK_LEDGER_PATH", "VNSTOCK_CANDLE_URL", "VNSTOCK_LOG_LEVEL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "data", "ledger.db")
	cfgPath := filepath.Join(dir, "vnstock.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
storage:
  data_dir: %q
  ledger_path: %q
  log_dir: ""
logging:
  level: error
`, filepath.Join(dir, "data"), ledgerPath)), 0o644))

	_, err := execute(t, "--config", cfgPath, "history", "--limit", "5")
	assert.ErrorIs(t, err, os.ErrNotExist)

	out, err := execute(t, "--config", cfgPath, "schedule", "--next", "3")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)

	_, statErr := os.Stat(filepath.Join(dir, "data"))
	assert.True(t, os.IsNotExist(statErr), "read-only commands created the data dir")
}
