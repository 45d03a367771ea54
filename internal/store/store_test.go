package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vnstock/internal/domain"
	"vnstock/internal/util"
)

func candleFrame(t *testing.T, day time.Time, closes ...float64) *domain.Frame {
	t.Helper()
	f := domain.NewFrame(len(closes))
	ts := make([]any, len(closes))
	cs := make([]any, len(closes))
	vs := make([]any, len(closes))
	syms := make([]any, len(closes))
	for i, c := range closes {
		ts[i] = day.Add(9*time.Hour + time.Duration(i)*time.Minute)
		cs[i] = c
		vs[i] = int64(100 * (i + 1))
		syms[i] = "VN30F2506"
	}
	for name, vals := range map[string][]any{"t": ts, "c": cs, "v": vs, "symbol": syms} {
		if err := f.Set(name, vals); err != nil {
			t.Fatalf("Set(%s): %v", name, err)
		}
	}
	return f
}

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data", nil)
	day := util.Date(2025, time.June, 5)

	got := ps.PartitionDir("VN30F/VN30F2506", day)
	want := filepath.Join("/data", "VN30F", "VN30F2506", "stock_date=2025-06-05")
	if got != want {
		t.Errorf("PartitionDir mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestParquetStoreWriteReadPartition(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir, nil)
	ctx := context.Background()
	day := util.Date(2025, time.June, 5)

	out, err := ps.WritePartition(ctx, "VN30", day, candleFrame(t, day, 1300.5, 1301, 1299.25), false)
	if err != nil {
		t.Fatalf("WritePartition: %v", err)
	}
	if out.Rows != 3 || out.Skipped || out.Replaced {
		t.Errorf("outcome = %+v", out)
	}

	got, err := ps.ReadPartition(ctx, "VN30", day)
	if err != nil {
		t.Fatalf("ReadPartition: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("ReadPartition returned %d rows, want 3", got.Len())
	}

	c, ok := got.Column("c")
	if !ok || c.Type != domain.ColumnFloat64 {
		t.Fatalf("column c = %+v", c)
	}
	if c.Values[0] != 1300.5 || c.Values[2] != 1299.25 {
		t.Errorf("c values = %v", c.Values)
	}

	v, _ := got.Column("v")
	if v.Type != domain.ColumnInt64 || v.Values[1] != int64(200) {
		t.Errorf("v column = %+v", v)
	}

	ts, _ := got.Column("t")
	if ts.Type != domain.ColumnTime {
		t.Fatalf("t column type = %s, want time", ts.Type)
	}
	first := ts.Values[0].(time.Time)
	if !first.Equal(day.Add(9 * time.Hour)) {
		t.Errorf("first t = %s", first)
	}

	sd, ok := got.Column(PartitionKey)
	if !ok || !sd.Values[0].(time.Time).Equal(day) {
		t.Errorf("stock_date column = %+v", sd)
	}
}

func TestParquetStoreFullReplace(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir, nil)
	ctx := context.Background()
	day := util.Date(2025, time.June, 5)

	if _, err := ps.WritePartition(ctx, "VN30", day, candleFrame(t, day, 1, 2, 3, 4), false); err != nil {
		t.Fatalf("WritePartition (first): %v", err)
	}
	// A stray file from an older layout must not survive the replace.
	stray := filepath.Join(ps.PartitionDir("VN30", day), "stale.parquet")
	if err := os.WriteFile(stray, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := ps.WritePartition(ctx, "VN30", day, candleFrame(t, day, 5, 6), false)
	if err != nil {
		t.Fatalf("WritePartition (second): %v", err)
	}
	if !out.Replaced {
		t.Error("second write should report Replaced")
	}
	if _, err := os.Stat(stray); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stray file survived replace: %v", err)
	}

	got, err := ps.ReadPartition(ctx, "VN30", day)
	if err != nil {
		t.Fatalf("ReadPartition: %v", err)
	}
	if got.Len() != 2 {
		t.Errorf("ReadPartition returned %d rows after replace, want 2 (not appended)", got.Len())
	}
}

func TestParquetStoreIdempotentBytes(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir, nil)
	ctx := context.Background()
	day := util.Date(2025, time.June, 5)
	file := filepath.Join(ps.PartitionDir("VN30", day), partitionFile)

	if _, err := ps.WritePartition(ctx, "VN30", day, candleFrame(t, day, 1, 2, 3), false); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ps.WritePartition(ctx, "VN30", day, candleFrame(t, day, 1, 2, 3), false); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("re-writing the same rows produced different bytes")
	}
}

func TestParquetStoreDryRunTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir, nil)
	ctx := context.Background()
	day := util.Date(2025, time.June, 5)

	out, err := ps.WritePartition(ctx, "VN30", day, candleFrame(t, day, 1, 2), true)
	if err != nil {
		t.Fatalf("WritePartition dry-run: %v", err)
	}
	if !out.DryRun || out.Rows != 2 {
		t.Errorf("outcome = %+v", out)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("dry-run created %d entries under data dir", len(entries))
	}

	// Dry-run over an existing partition leaves it intact.
	if _, err := ps.WritePartition(ctx, "VN30", day, candleFrame(t, day, 1, 2, 3), false); err != nil {
		t.Fatal(err)
	}
	if _, err := ps.WritePartition(ctx, "VN30", day, candleFrame(t, day, 9), true); err != nil {
		t.Fatal(err)
	}
	got, err := ps.ReadPartition(ctx, "VN30", day)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 3 {
		t.Errorf("dry-run altered partition: %d rows, want 3", got.Len())
	}
}

func TestParquetStoreEmptyIsNoop(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir, nil)
	day := util.Date(2025, time.June, 5)

	out, err := ps.WritePartition(context.Background(), "VN30", day, domain.NewFrame(0), false)
	if err != nil {
		t.Fatalf("WritePartition: %v", err)
	}
	if !out.Skipped {
		t.Error("empty write should be skipped")
	}
	if _, err := os.Stat(ps.PartitionDir("VN30", day)); !errors.Is(err, os.ErrNotExist) {
		t.Error("empty write created a partition directory")
	}
}

func TestParquetStoreWriteError(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the prefix directory should be.
	if err := os.WriteFile(filepath.Join(dir, "VN30"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ps := NewParquetStore(dir, nil)
	day := util.Date(2025, time.June, 5)

	_, err := ps.WritePartition(context.Background(), "VN30", day, candleFrame(t, day, 1), false)
	var we *domain.WriteError
	if !errors.As(err, &we) {
		t.Fatalf("err = %v, want *domain.WriteError", err)
	}
}

func TestParquetStoreListDates(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir, nil)
	ctx := context.Background()

	for _, d := range []int{6, 5} {
		day := util.Date(2025, time.June, d)
		if _, err := ps.WritePartition(ctx, "VN30", day, candleFrame(t, day, 1), false); err != nil {
			t.Fatal(err)
		}
	}

	dates, err := ps.ListDates(ctx, "VN30")
	if err != nil {
		t.Fatalf("ListDates: %v", err)
	}
	if len(dates) != 2 || dates[0].Day() != 5 || dates[1].Day() != 6 {
		t.Errorf("ListDates = %v", dates)
	}

	none, err := ps.ListDates(ctx, "MISSING")
	if err != nil || len(none) != 0 {
		t.Errorf("ListDates(missing) = %v, %v", none, err)
	}
}

func TestSQLiteLedgerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	ctx := context.Background()

	ledger, err := NewSQLiteLedger(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteLedger(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := ledger.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()

	day := util.Date(2025, time.June, 5)
	report := &domain.RunReport{
		RunID:      "run-1",
		Instrument: domain.Rolling("VN30F", "41I1"),
		From:       day,
		To:         day,
		StartedAt:  day.Add(9 * time.Hour),
	}
	if err := ledger.BeginRun(ctx, report); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	items := []domain.ItemResult{
		{Item: domain.WorkItem{Symbol: "VN30F2506", Date: day}, Rows: 240, Partitions: 1},
		{Item: domain.WorkItem{Symbol: "VN30F2506", Date: day.AddDate(0, 0, 1)}, Err: errors.New("status 502")},
	}
	for _, it := range items {
		if err := ledger.RecordItem(ctx, report.RunID, it); err != nil {
			t.Fatalf("RecordItem: %v", err)
		}
	}

	report.Items = items
	report.Status = domain.RunCompletedWithErrors
	report.FinishedAt = day.Add(9*time.Hour + time.Minute)
	if err := ledger.FinishRun(ctx, report); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := ledger.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns returned %d runs, want 1", len(runs))
	}
	r := runs[0]
	if r.Status != domain.RunCompletedWithErrors || r.Items != 2 || r.Failures != 1 || r.From != "2025-06-05" {
		t.Errorf("run summary = %+v", r)
	}

	stored, err := ledger.ListItems(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(stored) != 2 || stored[0].Rows != 240 || stored[1].Error != "status 502" {
		t.Errorf("items = %+v", stored)
	}
}

func TestSQLiteLedgerReadOnly(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	ctx := context.Background()

	if _, err := OpenSQLiteLedgerReadOnly(dbPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("OpenSQLiteLedgerReadOnly(missing) err = %v, want os.ErrNotExist", err)
	}
	if _, err := os.Stat(dbPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("read-only open created %s", dbPath)
	}

	rw, err := NewSQLiteLedger(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteLedger: %v", err)
	}
	day := util.Date(2025, time.June, 5)
	report := &domain.RunReport{RunID: "run-ro", Instrument: domain.Plain("VN30"), From: day, To: day, StartedAt: day}
	if err := rw.BeginRun(ctx, report); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatal(err)
	}

	ro, err := OpenSQLiteLedgerReadOnly(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLiteLedgerReadOnly: %v", err)
	}
	defer ro.Close()

	runs, err := ro.ListRuns(ctx, 10)
	if err != nil || len(runs) != 1 || runs[0].RunID != "run-ro" {
		t.Errorf("ListRuns = %+v, %v", runs, err)
	}
	report.RunID = "run-2"
	if err := ro.BeginRun(ctx, report); err == nil {
		t.Error("BeginRun on a read-only ledger should fail")
	}
}
