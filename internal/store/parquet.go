package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"vnstock/internal/domain"
	"vnstock/internal/util"
)

// Compile-time interface checks.
var _ PartitionWriter = (*ParquetStore)(nil)
var _ PartitionReader = (*ParquetStore)(nil)

const (
	// PartitionKey names the hive partition directory component.
	PartitionKey = "stock_date"
	// TimeColumn is the per-row timestamp column partitions are sorted by.
	TimeColumn = "t"

	partitionFile = "00000000.parquet"
	dateLayout    = "2006-01-02"
)

// ParquetStore keeps hive-partitioned Parquet files on disk:
//
//	<DataDir>/<prefix>/stock_date=<YYYY-MM-DD>/00000000.parquet
type ParquetStore struct {
	DataDir string
	log     *slog.Logger
}

// NewParquetStore creates a ParquetStore rooted at dataDir.
func NewParquetStore(dataDir string, log *slog.Logger) *ParquetStore {
	if log == nil {
		log = util.Discard()
	}
	return &ParquetStore{DataDir: dataDir, log: log.With("component", "store")}
}

// PartitionDir returns the directory holding one partition.
func (s *ParquetStore) PartitionDir(prefix string, date time.Time) string {
	return filepath.Join(s.DataDir, filepath.FromSlash(prefix), PartitionKey+"="+date.Format(dateLayout))
}

// ---------------------------------------------------------------------------
// PartitionWriter implementation
// ---------------------------------------------------------------------------

// WritePartition deletes any existing partition directory and writes rows as
// its only file. Re-running with the same rows yields the same bytes on disk.
// Dry-run logs the same steps without touching the filesystem.
func (s *ParquetStore) WritePartition(_ context.Context, prefix string, date time.Time, rows *domain.Frame, dryRun bool) (WriteOutcome, error) {
	dir := s.PartitionDir(prefix, date)
	out := WriteOutcome{Path: dir, Rows: rows.Len(), DryRun: dryRun}
	if rows.Len() == 0 {
		out.Skipped = true
		return out, nil
	}
	if _, err := os.Stat(dir); err == nil {
		out.Replaced = true
	}

	log := s.log.With("path", dir, "rows", rows.Len(), "dry_run", dryRun)

	log.Info("removing partition", "exists", out.Replaced)
	if !dryRun {
		if err := os.RemoveAll(dir); err != nil {
			return out, &domain.WriteError{Path: dir, Err: err}
		}
	}

	log.Info("writing partition")
	if dryRun {
		return out, nil
	}
	if err := writeFrame(filepath.Join(dir, partitionFile), rows); err != nil {
		return out, &domain.WriteError{Path: dir, Err: err}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// PartitionReader implementation
// ---------------------------------------------------------------------------

// ReadPartition loads every Parquet file of one partition, restores the
// stock_date column from the directory name, and sorts by TimeColumn.
func (s *ParquetStore) ReadPartition(_ context.Context, prefix string, date time.Time) (*domain.Frame, error) {
	dir := s.PartitionDir(prefix, date)
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("partition %s: %w", dir, os.ErrNotExist)
	}
	sort.Strings(files)

	frames := make([]*domain.Frame, 0, len(files))
	for _, f := range files {
		fr, err := readFrame(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		frames = append(frames, fr)
	}

	out := domain.Concat(frames...)
	day := util.DateOf(date)
	keys := make([]any, out.Len())
	for i := range keys {
		keys[i] = day
	}
	if err := out.Set(PartitionKey, keys); err != nil {
		return nil, err
	}
	return out.SortBy(TimeColumn), nil
}

// ListDates returns the stock dates present under prefix, ascending.
func (s *ParquetStore) ListDates(_ context.Context, prefix string) ([]time.Time, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, filepath.FromSlash(prefix)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var dates []time.Time
	for _, e := range entries {
		name, ok := strings.CutPrefix(e.Name(), PartitionKey+"=")
		if !e.IsDir() || !ok {
			continue
		}
		d, err := time.ParseInLocation(dateLayout, name, util.Location)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

// frameSchema builds an all-optional flat schema. parquet.Group orders its
// fields by name, so the returned columns are sorted the same way and their
// position is the leaf column index.
func frameSchema(f *domain.Frame) (*parquet.Schema, []*domain.Column) {
	cols := append([]*domain.Column(nil), f.Columns()...)
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })

	group := parquet.Group{}
	for _, c := range cols {
		group[c.Name] = parquet.Optional(leafNode(c.Type))
	}
	return parquet.NewSchema("candle", group), cols
}

func leafNode(t domain.ColumnType) parquet.Node {
	switch t {
	case domain.ColumnInt64:
		return parquet.Int(64)
	case domain.ColumnFloat64:
		return parquet.Leaf(parquet.DoubleType)
	case domain.ColumnTime:
		return parquet.Timestamp(parquet.Millisecond)
	default:
		return parquet.String()
	}
}

func leafValue(v any, column int) parquet.Value {
	var pv parquet.Value
	switch x := v.(type) {
	case nil:
		return parquet.NullValue().Level(0, 0, column)
	case int64:
		pv = parquet.Int64Value(x)
	case float64:
		pv = parquet.DoubleValue(x)
	case time.Time:
		pv = parquet.Int64Value(x.UnixMilli())
	case string:
		pv = parquet.ByteArrayValue([]byte(x))
	default:
		pv = parquet.ByteArrayValue([]byte(fmt.Sprint(x)))
	}
	return pv.Level(0, 1, column)
}

// writeFrame writes f to path through a temporary file renamed into place.
func writeFrame(path string, f *domain.Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	schema, cols := frameSchema(f)

	rows := make([]parquet.Row, f.Len())
	for i := range rows {
		row := make(parquet.Row, len(cols))
		for j, c := range cols {
			row[j] = leafValue(c.Values[i], j)
		}
		rows[i] = row
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := parquet.NewWriter(file, schema)
	if _, err := w.WriteRows(rows); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Close(); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func readFrame(path string) (*domain.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, err
	}

	schema := pf.Schema()
	paths := schema.Columns()
	isTime := make([]bool, len(paths))
	for i, p := range paths {
		leaf, ok := schema.Lookup(p...)
		if !ok {
			continue
		}
		if lt := leaf.Node.Type().LogicalType(); lt != nil && lt.Timestamp != nil {
			isTime[i] = true
		}
	}

	n := int(pf.NumRows())
	values := make([][]any, len(paths))
	for i := range values {
		values[i] = make([]any, 0, n)
	}

	r := parquet.NewReader(pf)
	defer r.Close()

	buf := make([]parquet.Row, 128)
	for {
		k, err := r.ReadRows(buf)
		for _, row := range buf[:k] {
			for _, v := range row {
				col := v.Column()
				values[col] = append(values[col], fromValue(v, isTime[col]))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if k == 0 {
			break
		}
	}

	fr := domain.NewFrame(n)
	for i, p := range paths {
		if err := fr.Set(strings.Join(p, "."), values[i]); err != nil {
			return nil, err
		}
	}
	return fr, nil
}

func fromValue(v parquet.Value, isTime bool) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Int64:
		if isTime {
			return time.UnixMilli(v.Int64()).In(util.Location)
		}
		return v.Int64()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Double:
		return v.Double()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Boolean:
		return fmt.Sprint(v.Boolean())
	default:
		return string(v.ByteArray())
	}
}
